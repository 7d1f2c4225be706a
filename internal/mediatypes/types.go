package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// ExtensionSet is a case-insensitive allow-list of dot-prefixed file
// extensions. Keys are stored normalized (lowercase, leading dot).
type ExtensionSet map[string]bool

// DefaultExtensions returns the standard picture frame image formats.
func DefaultExtensions() ExtensionSet {
	return ExtensionSet{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
	}
}

// ParseExtensions builds an ExtensionSet from a comma-separated list such
// as ".jpg,.png" or "jpg, png". Empty entries are ignored; an empty input
// yields the default set.
func ParseExtensions(s string) ExtensionSet {
	set := ExtensionSet{}
	for _, part := range strings.Split(s, ",") {
		ext := Normalize(part)
		if ext != "." && ext != "" {
			set[ext] = true
		}
	}
	if len(set) == 0 {
		return DefaultExtensions()
	}
	return set
}

// Normalize lowercases an extension and ensures a leading dot.
func Normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Allows reports whether the file at path has an allowed extension.
func (s ExtensionSet) Allows(path string) bool {
	return s[strings.ToLower(filepath.Ext(path))]
}

// List returns the extensions in sorted order for logging and display.
func (s ExtensionSet) List() []string {
	exts := make([]string, 0, len(s))
	for ext := range s {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
