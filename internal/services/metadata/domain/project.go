package domain

import (
	"errors"
	"strings"
)

// ErrInvalidProjectPath indicates a malformed depot project path.
var ErrInvalidProjectPath = errors.New("invalid project path")

// Project is the durable identity clients report against. The (stream, name)
// pair is unique; both halves are stored lowercase and the id never changes.
type Project struct {
	ID     int64
	Stream string
	Name   string
}

// FullPath returns the canonical lowercase depot path for the project.
func (p Project) FullPath() string {
	return p.Stream + "/" + p.Name
}

// ParseProjectPath splits a depot path of the form //<stream>/<project...>
// into its stream and project halves, both lowercased.
//
// The stream is the leading //-prefixed segment; everything after the next
// slash names the project and may itself contain slashes. A path without the
// // prefix, without a project delimiter, or with an empty project remainder
// is rejected with ErrInvalidProjectPath.
func ParseProjectPath(path string) (stream, project string, err error) {
	if !strings.HasPrefix(path, "//") {
		return "", "", ErrInvalidProjectPath
	}
	idx := strings.Index(path[2:], "/")
	if idx < 0 {
		return "", "", ErrInvalidProjectPath
	}
	stream = strings.ToLower(path[:2+idx])
	project = strings.ToLower(path[2+idx+1:])
	if project == "" {
		return "", "", ErrInvalidProjectPath
	}
	return stream, project, nil
}
