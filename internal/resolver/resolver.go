package resolver

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"picture-frame/internal/mediatypes"
)

// Rejection reasons. Callers that only care about eligibility can treat
// any returned error as "not catalogable"; the sentinels distinguish the
// cases for logging and tests.
var (
	// ErrExtensionNotAllowed means the file's extension is not in the allow-list.
	ErrExtensionNotAllowed = errors.New("extension not allowed")
	// ErrOutsideRoot means the path does not live under the given media root.
	ErrOutsideRoot = errors.New("path outside media root")
	// ErrNoAlbum means the file sits directly in the media root, with no
	// containing directory to act as its album.
	ErrNoAlbum = errors.New("file has no containing album directory")
)

// Resolved is the classification of a file path under a media root.
type Resolved struct {
	// Album is the directory path containing the file, relative to the
	// root and forward-slash separated (e.g. "vacation" or
	// "vacation/2024").
	Album string
	// RelativePath is the file's path relative to the root, forward-slash
	// separated regardless of host OS.
	RelativePath string
}

// Resolve classifies filePath under root. The file must be inside root,
// must not sit directly in root, and must carry an allowed extension.
// Album naming uses the lowest containing directory, composed as the full
// path below the root so nested sub-albums stay distinct.
func Resolve(root, filePath string, exts mediatypes.ExtensionSet) (Resolved, error) {
	if !exts.Allows(filePath) {
		return Resolved{}, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, filepath.Ext(filePath))
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolving root %s: %w", root, err)
	}
	absFile, err := filepath.Abs(filePath)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolving path %s: %w", filePath, err)
	}

	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil {
		return Resolved{}, fmt.Errorf("%w: %s", ErrOutsideRoot, filePath)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Resolved{}, fmt.Errorf("%w: %s", ErrOutsideRoot, filePath)
	}

	relSlash := filepath.ToSlash(rel)
	album := path.Dir(relSlash)
	if album == "." {
		return Resolved{}, fmt.Errorf("%w: %s", ErrNoAlbum, filePath)
	}

	return Resolved{Album: album, RelativePath: relSlash}, nil
}
