package summary

import (
	"fmt"
	"path/filepath"
	"sync"

	"repsim/internal/artifact"
	"repsim/internal/naming"
)

// Settings resolution methods, recorded on every row.
const (
	MatchExact   = "exact"
	MatchPattern = "pattern"
	MatchSole    = "sole"
)

// Resolver finds the settings artifact for a decoded identity: exact name
// first, then the scheme's glob patterns, then the directory's only file.
type Resolver struct {
	scheme naming.Scheme

	mu    sync.Mutex
	lists map[int][]string
}

func NewResolver(scheme naming.Scheme) *Resolver {
	return &Resolver{scheme: scheme, lists: make(map[int][]string)}
}

func (r *Resolver) list(n int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if files, ok := r.lists[n]; ok {
		return files, nil
	}
	files, err := artifact.List(r.scheme.SettingsDir(n), "*.json")
	if err != nil {
		return nil, err
	}
	r.lists[n] = files
	return files, nil
}

// Resolve returns the settings path and how it was found.
func (r *Resolver) Resolve(n, plan, district int) (path, method string, err error) {
	files, err := r.list(n)
	if err != nil {
		return "", "", err
	}
	exact := r.scheme.SettingsPath(n, plan, district)
	for _, f := range files {
		if f == exact {
			return f, MatchExact, nil
		}
	}
	dir := r.scheme.SettingsDir(n)
	for _, pattern := range r.scheme.SettingsPatterns(plan, district) {
		matches, err := artifact.List(dir, pattern)
		if err != nil {
			return "", "", err
		}
		for _, m := range matches {
			// A pattern hit must still decode to the same identity.
			id := r.scheme.Decode(m)
			if int(id.Plan) == plan && int(id.District) == district {
				return m, MatchPattern, nil
			}
		}
	}
	if len(files) == 1 {
		return files[0], MatchSole, nil
	}
	return "", "", fmt.Errorf("no settings for plan %d district %d in %s (%d candidates)",
		plan, district, filepath.Base(dir), len(files))
}
