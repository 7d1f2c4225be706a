package resolver

import (
	"errors"
	"path/filepath"
	"testing"

	"picture-frame/internal/mediatypes"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	exts := mediatypes.DefaultExtensions()
	root := filepath.Join("/", "media", "photos")

	tests := []struct {
		name    string
		path    string
		want    Resolved
		wantErr error
	}{
		{
			name: "single level album",
			path: filepath.Join(root, "vacation", "beach.jpg"),
			want: Resolved{Album: "vacation", RelativePath: "vacation/beach.jpg"},
		},
		{
			name: "nested album composes full path",
			path: filepath.Join(root, "vacation", "2024", "day1.png"),
			want: Resolved{Album: "vacation/2024", RelativePath: "vacation/2024/day1.png"},
		},
		{
			name: "uppercase extension accepted",
			path: filepath.Join(root, "home", "cat.JPG"),
			want: Resolved{Album: "home", RelativePath: "home/cat.JPG"},
		},
		{
			name:    "disallowed extension",
			path:    filepath.Join(root, "vacation", "clip.mp4"),
			wantErr: ErrExtensionNotAllowed,
		},
		{
			name:    "no extension",
			path:    filepath.Join(root, "vacation", "README"),
			wantErr: ErrExtensionNotAllowed,
		},
		{
			name:    "outside root",
			path:    filepath.Join("/", "media", "other", "a.jpg"),
			wantErr: ErrOutsideRoot,
		},
		{
			name:    "sneaky parent traversal",
			path:    filepath.Join(root, "..", "other", "a.jpg"),
			wantErr: ErrOutsideRoot,
		},
		{
			name:    "file directly in root",
			path:    filepath.Join(root, "loose.jpg"),
			wantErr: ErrNoAlbum,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(root, tt.path, exts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveIndependentRoots(t *testing.T) {
	t.Parallel()

	exts := mediatypes.DefaultExtensions()

	// The same album name under two roots resolves independently; the
	// caller disambiguates with the source root.
	for _, root := range []string{"/media/primary", "/media/secondary"} {
		got, err := Resolve(root, filepath.Join(root, "vacation", "a.jpg"), exts)
		if err != nil {
			t.Fatalf("Resolve under %s: %v", root, err)
		}
		if got.Album != "vacation" {
			t.Errorf("album under %s = %q, want %q", root, got.Album, "vacation")
		}
	}
}
