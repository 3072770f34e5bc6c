package source

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// IncludeHandler resolves #include directives to source buffers.
//
// Resolve receives the requested path and whether the include used the
// system form (<...>) or the local form ("..."). It returns the resolved
// buffer, or an error if the file cannot be found.
type IncludeHandler interface {
	Resolve(path string, system bool) (*SourceCode, error)
}

// FileIncludeHandler resolves includes against the local filesystem.
//
// Local includes are resolved relative to Base first, then against
// SearchPaths in order. System includes skip Base.
type FileIncludeHandler struct {
	Base        string
	SearchPaths []string
}

// Resolve implements IncludeHandler.
func (h *FileIncludeHandler) Resolve(path string, system bool) (*SourceCode, error) {
	var candidates []string
	if !system && h.Base != "" {
		candidates = append(candidates, filepath.Join(h.Base, path))
	}
	for _, dir := range h.SearchPaths {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	if len(candidates) == 0 {
		candidates = []string{path}
	}

	for _, name := range candidates {
		data, err := os.ReadFile(name)
		if err == nil {
			return New(name, string(data)), nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "reading include file %q", name)
		}
	}
	return nil, errors.Errorf("include file not found: %q", path)
}

// MapIncludeHandler resolves includes from an in-memory map of path to
// file contents. Used by tests and embedded callers.
type MapIncludeHandler map[string]string

// Resolve implements IncludeHandler.
func (h MapIncludeHandler) Resolve(path string, system bool) (*SourceCode, error) {
	text, ok := h[path]
	if !ok {
		return nil, errors.Errorf("include file not found: %q", path)
	}
	return New(path, text), nil
}
