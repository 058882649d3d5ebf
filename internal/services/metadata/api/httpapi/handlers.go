package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/louisbranch/ugs-metadata/internal/services/metadata/domain"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/engine"
)

type latestResponse struct {
	Version       *int64 `json:"Version"`
	LastEventID   int64  `json:"LastEventId"`
	LastCommentID int64  `json:"LastCommentId"`
	LastBuildID   int64  `json:"LastBuildId"`
}

type badgeView struct {
	ID           int64     `json:"Id"`
	ChangeNumber int64     `json:"ChangeNumber"`
	AddedAt      time.Time `json:"AddedAt"`
	BuildType    string    `json:"BuildType"`
	Result       int       `json:"Result"`
	URL          string    `json:"Url"`
	Project      string    `json:"Project"`
}

type createBadgeRequest struct {
	ChangeNumber int64  `json:"ChangeNumber"`
	BuildType    string `json:"BuildType"`
	Result       int    `json:"Result"`
	URL          string `json:"Url"`
	Project      string `json:"Project"`
}

type metadataResponse struct {
	SequenceNumber int64          `json:"SequenceNumber"`
	Items          []metadataItem `json:"Items"`
}

type metadataItem struct {
	Change  int64            `json:"Change"`
	Project string           `json:"Project"`
	Users   []userStateView  `json:"Users"`
	Badges  []badgeStateView `json:"Badges"`
}

type userStateView struct {
	User          string     `json:"User"`
	SyncTime      *time.Time `json:"SyncTime,omitempty"`
	Vote          *int       `json:"Vote,omitempty"`
	Comment       *string    `json:"Comment,omitempty"`
	Investigating *bool      `json:"Investigating,omitempty"`
	Starred       *bool      `json:"Starred,omitempty"`
}

type badgeStateView struct {
	Name  string `json:"Name"`
	URL   string `json:"Url"`
	State int    `json:"State"`
}

type updateMetadataRequest struct {
	Change        int64   `json:"Change"`
	Project       string  `json:"Project"`
	UserName      string  `json:"UserName"`
	Synced        *bool   `json:"Synced"`
	Vote          *int    `json:"Vote"`
	Investigating *bool   `json:"Investigating"`
	Starred       *bool   `json:"Starred"`
	Comment       *string `json:"Comment"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !authorized(r, h.cfg.UserAuth) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	latest, err := h.engine.LatestSequence(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProjectPath) {
			writeJSONError(w, http.StatusBadRequest, "invalid project path")
			return
		}
		log.Printf("latest: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, latestResponse{LastBuildID: latest})
}

func (h *Handler) handleBuild(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBadges(w, r)
	case http.MethodPost:
		h.createBadge(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listBadges(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, h.cfg.UserAuth) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	params := r.URL.Query()
	lastBuildID, err := queryInt(params.Get("lastbuildid"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid lastbuildid")
		return
	}

	badges, err := h.engine.ListBadges(r.Context(), params.Get("project"), lastBuildID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProjectPath) {
			writeJSONError(w, http.StatusBadRequest, "invalid project path")
			return
		}
		log.Printf("list badges: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]badgeView, 0, len(badges))
	for _, badge := range badges {
		views = append(views, badgeView{
			ID:           badge.Sequence,
			ChangeNumber: badge.Change,
			AddedAt:      badge.AddedAt,
			BuildType:    badge.BuildType,
			Result:       int(badge.Result),
			URL:          badge.URL,
			Project:      params.Get("project"),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createBadge(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, h.cfg.CIAuth) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An accepted write completes even if the client hangs up mid-request.
	err := h.engine.SubmitBadge(context.WithoutCancel(r.Context()), engine.BadgeSubmission{
		ProjectPath: req.Project,
		Change:      req.ChangeNumber,
		BuildType:   req.BuildType,
		Result:      domain.BadgeResult(req.Result),
		URL:         req.URL,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProjectPath) {
			writeJSONError(w, http.StatusBadRequest, "invalid project path")
			return
		}
		if errors.Is(err, engine.ErrInvalidSubmission) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("create badge: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.queryMetadata(w, r)
	case http.MethodPost:
		h.updateMetadata(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) queryMetadata(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, h.cfg.UserAuth) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	params := r.URL.Query()
	req := engine.QueryRequest{
		Stream:  params.Get("stream"),
		Project: params.Get("project"),
	}
	var err error
	if req.AfterSequence, err = queryInt(params.Get("sequence")); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid sequence")
		return
	}
	if req.MinChange, err = queryInt(params.Get("minchange")); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid minchange")
		return
	}
	if req.MaxChange, err = queryInt(params.Get("maxchange")); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid maxchange")
		return
	}
	if req.Stream == "" {
		writeJSONError(w, http.StatusBadRequest, "stream is required")
		return
	}

	result, err := h.engine.Query(r.Context(), req)
	if err != nil {
		log.Printf("query metadata: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	response := metadataResponse{
		SequenceNumber: result.SequenceNumber,
		Items:          make([]metadataItem, 0, len(result.Items)),
	}
	for _, record := range result.Items {
		item := metadataItem{
			Change:  record.Change,
			Project: record.Project,
			Users:   make([]userStateView, 0, len(record.Users)),
			Badges:  make([]badgeStateView, 0, len(record.Badges)),
		}
		for _, user := range record.Users {
			view := userStateView{
				User:          user.User,
				SyncTime:      user.SyncTime,
				Comment:       user.Comment,
				Investigating: user.Investigating,
				Starred:       user.Starred,
			}
			if user.Vote != nil {
				vote := int(*user.Vote)
				view.Vote = &vote
			}
			item.Users = append(item.Users, view)
		}
		for _, badge := range record.Badges {
			item.Badges = append(item.Badges, badgeStateView{
				Name:  badge.Name,
				URL:   badge.URL,
				State: int(badge.State),
			})
		}
		response.Items = append(response.Items, item)
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) updateMetadata(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, h.cfg.UserAuth) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub := engine.UserEventSubmission{
		ProjectPath:   req.Project,
		Change:        req.Change,
		User:          req.UserName,
		Synced:        req.Synced,
		Investigating: req.Investigating,
		Starred:       req.Starred,
		Comment:       req.Comment,
	}
	if req.Vote != nil {
		vote := domain.UserVote(*req.Vote)
		sub.Vote = &vote
	}

	err := h.engine.SubmitUserEvent(context.WithoutCancel(r.Context()), sub)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProjectPath) {
			writeJSONError(w, http.StatusBadRequest, "invalid project path")
			return
		}
		if errors.Is(err, engine.ErrInvalidSubmission) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("update metadata: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleEmptyList keeps old clients quiet on surfaces this server does not
// implement: they expect a JSON list and log errors on anything else.
func (h *Handler) handleEmptyList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !authorized(r, h.cfg.UserAuth) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, []string{})
}

func queryInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse int %q: %w", raw, err)
	}
	return value, nil
}
