// Package main posts a build badge to a metadata server, covering the role
// of the old PostBadgeStatus.exe in CI scripts.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"

	"github.com/louisbranch/ugs-metadata/internal/platform/config"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "metadata server base URL")
	project := flag.String("project", "", "depot path of the project, e.g. //depot/stream/proj")
	change := flag.Int64("change", 0, "changelist number")
	buildType := flag.String("build-type", "", "badge name, e.g. Editor")
	result := flag.Int("result", 0, "badge result code: 0 starting, 1 failure, 2 warning, 3 success, 4 skipped")
	badgeURL := flag.String("url", "", "link target for the badge")
	auth := flag.String("auth", "", "CI shared secret")
	flag.Parse()

	if *project == "" || *buildType == "" || *change <= 0 {
		config.Exitf("project, change, and build-type are required")
	}

	payload, err := json.Marshal(map[string]any{
		"ChangeNumber": *change,
		"BuildType":    *buildType,
		"Result":       *result,
		"Url":          *badgeURL,
		"Project":      *project,
	})
	if err != nil {
		config.Exitf("encode badge: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *serverURL+"/api/build", bytes.NewReader(payload))
	if err != nil {
		config.Exitf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *auth != "" {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(*auth)))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		config.Exitf("post badge: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		config.Exitf("post badge: server returned %s", resp.Status)
	}
	fmt.Printf("badge posted: %s %s cl %d\n", *project, *buildType, *change)
}
