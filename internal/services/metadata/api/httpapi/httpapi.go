// Package httpapi exposes the metadata engine over the UnrealGameSync HTTP
// wire protocol: PascalCase JSON, numeric enum codes, and shared-secret
// Basic auth per route group.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/engine"
)

// Config carries the handler's route and auth settings. Empty secrets leave
// the corresponding route group open; RequestRoot nests every route under a
// path prefix, with /health additionally served at the bare root.
type Config struct {
	UserAuth    string
	CIAuth      string
	RequestRoot string
}

// Handler serves the metadata HTTP API.
type Handler struct {
	engine *engine.Engine
	cfg    Config
}

// New creates a handler over the engine.
func New(eng *engine.Engine, cfg Config) *Handler {
	return &Handler{engine: eng, cfg: cfg}
}

// Routes builds the full route table, request-root nesting included.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	root := normalizeRoot(h.cfg.RequestRoot)

	mux.HandleFunc(root+"/health", h.handleHealth)
	if root != "" {
		mux.HandleFunc("/health", h.handleHealth)
	}
	mux.HandleFunc(root+"/api/latest", h.handleLatest)
	mux.HandleFunc(root+"/api/metadata", h.handleMetadata)
	mux.HandleFunc(root+"/api/build", h.handleBuild)
	// Back compat with old PostBadgeStatus.exe clients.
	mux.HandleFunc(root+"/api/Build", h.handleBuild)
	mux.HandleFunc(root+"/api/event", h.handleEmptyList)
	mux.HandleFunc(root+"/api/comment", h.handleEmptyList)
	mux.HandleFunc(root+"/api/issues", h.handleEmptyList)

	return traced(mux)
}

// normalizeRoot reduces the configured request root to "" (no nesting) or a
// clean "/prefix" form.
func normalizeRoot(root string) string {
	root = strings.Trim(strings.TrimSpace(root), "/")
	if root == "" {
		return ""
	}
	return "/" + root
}

// authorized reports whether the request carries the shared secret. An empty
// secret disables the check. The credential is the decoded Basic payload
// compared whole, not split into user and password halves.
func authorized(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Basic ")
	if !ok {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return false
	}
	return string(decoded) == secret
}

func traced(next http.Handler) http.Handler {
	tracer := otel.Tracer("metadata/httpapi")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type errorResponse struct {
	Message string `json:"Message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
