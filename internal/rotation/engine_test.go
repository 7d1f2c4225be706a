package rotation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"picture-frame/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	st, err := store.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})
	return New(st), st
}

func catalog(t *testing.T, st *store.Store, album, name string) string {
	t.Helper()

	rel := album + "/" + name
	path := "/media/" + rel
	tx, err := st.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	_, err = st.UpsertImage(tx, path, "/media", rel, album, time.Now())
	if endErr := st.EndBatch(tx, err); endErr != nil {
		t.Fatalf("failed to catalog %s: %v", path, endErr)
	}
	return path
}

func TestNextImageEmptyCatalog(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)

	_, err := e.NextImage(context.Background(), nil)
	if !errors.Is(err, store.ErrNoImages) {
		t.Fatalf("NextImage on empty catalog returned %v, want ErrNoImages", err)
	}
}

// Mirrors the canonical scenario: two vacation images, one home image.
// With the session filter on "vacation", two picks cover exactly the
// vacation images; clearing the filter then leaves home/c.jpg as the
// only unshown image, so the unfiltered pick is deterministic. Only
// after that does a filtered pick exhaust the scope and repeat.
func TestSessionFilterScenario(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t)
	ctx := context.Background()

	a := catalog(t, st, "vacation", "a.jpg")
	b := catalog(t, st, "vacation", "b.jpg")
	c := catalog(t, st, "home", "c.jpg")

	vacation := "vacation"
	e.SetAlbum(&vacation)

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		res, err := e.NextImage(ctx, nil)
		if err != nil {
			t.Fatalf("pick %d: %v", i, err)
		}
		if res.Path == c {
			t.Fatalf("pick %d returned %s despite vacation filter", i, c)
		}
		if res.CurrentAlbumFilter == nil || *res.CurrentAlbumFilter != vacation {
			t.Errorf("pick %d reported filter %v, want %q", i, res.CurrentAlbumFilter, vacation)
		}
		seen[res.Path] = true
	}
	if !seen[a] || !seen[b] {
		t.Errorf("two filtered picks covered %v, want both %s and %s", seen, a, b)
	}

	// Clearing the filter opens the whole catalog; home/c.jpg is the
	// only unshown image globally.
	e.SetAlbum(nil)
	res, err := e.NextImage(ctx, nil)
	if err != nil {
		t.Fatalf("unfiltered pick: %v", err)
	}
	if res.Path != c {
		t.Errorf("unfiltered pick = %s, want %s", res.Path, c)
	}
	if res.CurrentAlbumFilter != nil {
		t.Errorf("unfiltered pick reported filter %v, want nil", res.CurrentAlbumFilter)
	}

	// Everything is shown now, so a filtered pick exhausts the vacation
	// scope and must repeat one of its images with a cycle reset.
	e.SetAlbum(&vacation)
	res, err = e.NextImage(ctx, nil)
	if err != nil {
		t.Fatalf("exhausted pick: %v", err)
	}
	if !seen[res.Path] {
		t.Errorf("exhausted pick returned %s, want a repeat from the vacation scope", res.Path)
	}
	if !res.CycleReset {
		t.Error("exhausted pick did not report a cycle reset")
	}
}

func TestExplicitFilterOverridesSession(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t)
	ctx := context.Background()

	catalog(t, st, "vacation", "a.jpg")
	c := catalog(t, st, "home", "c.jpg")

	vacation := "vacation"
	home := "home"
	e.SetAlbum(&vacation)

	res, err := e.NextImage(ctx, &home)
	if err != nil {
		t.Fatalf("explicit pick: %v", err)
	}
	if res.Path != c {
		t.Errorf("explicit home pick = %s, want %s", res.Path, c)
	}
	if res.CurrentAlbumFilter == nil || *res.CurrentAlbumFilter != home {
		t.Errorf("explicit pick reported filter %v, want %q", res.CurrentAlbumFilter, home)
	}

	// The session filter itself is untouched by the explicit override.
	if cur := e.CurrentAlbum(); cur == nil || *cur != vacation {
		t.Errorf("session filter = %v, want %q", cur, vacation)
	}
}

func TestUnknownAlbumFilterYieldsNoImages(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t)
	catalog(t, st, "vacation", "a.jpg")

	// Permissive set: the filter is accepted even though the album is
	// not in the catalog yet.
	unknown := "not-scanned-yet"
	e.SetAlbum(&unknown)

	_, err := e.NextImage(context.Background(), nil)
	if !errors.Is(err, store.ErrNoImages) {
		t.Fatalf("pick with unknown filter returned %v, want ErrNoImages", err)
	}
}

func TestNextImageIncludesAlbumMetadata(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t)
	catalog(t, st, "vacation", "a.jpg")
	catalog(t, st, "home", "b.jpg")

	res, err := e.NextImage(context.Background(), nil)
	if err != nil {
		t.Fatalf("NextImage: %v", err)
	}
	if len(res.AvailableAlbums) != 2 {
		t.Errorf("AvailableAlbums = %v, want 2 albums", res.AvailableAlbums)
	}
	if res.SourceRoot != "/media" {
		t.Errorf("SourceRoot = %q, want %q", res.SourceRoot, "/media")
	}
	if res.RelativePath == "" {
		t.Error("RelativePath is empty")
	}
}

func TestResetHistory(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t)
	ctx := context.Background()

	catalog(t, st, "vacation", "a.jpg")
	catalog(t, st, "home", "b.jpg")

	for i := 0; i < 2; i++ {
		if _, err := e.NextImage(ctx, nil); err != nil {
			t.Fatalf("pick %d: %v", i, err)
		}
	}

	home := "home"
	count, err := e.ResetHistory(ctx, &home)
	if err != nil {
		t.Fatalf("ResetHistory: %v", err)
	}
	if count != 1 {
		t.Errorf("scoped reset cleared %d images, want 1", count)
	}

	count, err = e.ResetHistory(ctx, nil)
	if err != nil {
		t.Fatalf("global ResetHistory: %v", err)
	}
	if count != 2 {
		t.Errorf("global reset cleared %d images, want 2", count)
	}
}
