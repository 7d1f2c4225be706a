package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"picture-frame/internal/mediatypes"
	"picture-frame/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := store.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})
	return s
}

// writeImage creates a file (and its parents) under dir.
func writeImage(t *testing.T, dir string, parts ...string) string {
	t.Helper()

	path := filepath.Join(append([]string{dir}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("fake image data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestScanAddsImages(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeImage(t, root, "vacation", "a.jpg")
	writeImage(t, root, "vacation", "b.png")
	writeImage(t, root, "vacation", "2024", "c.jpg")
	writeImage(t, root, "home", "d.gif")
	writeImage(t, root, "home", "notes.txt")  // wrong extension
	writeImage(t, root, "loose.jpg")          // directly in root, no album
	writeImage(t, root, ".hidden", "e.jpg")   // hidden directory
	writeImage(t, root, "vacation", ".f.jpg") // hidden file

	st := newTestStore(t)
	sc := New(st, []string{root}, mediatypes.DefaultExtensions(), 0)

	result, err := sc.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.Added != 4 {
		t.Errorf("Added = %d, want 4", result.Added)
	}
	if result.Retired != 0 {
		t.Errorf("Retired = %d, want 0", result.Retired)
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}
	if result.Total != 4 {
		t.Errorf("Total = %d, want 4", result.Total)
	}

	albums, err := st.ListAlbums(context.Background())
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	want := []string{"home", "vacation", "vacation/2024"}
	if len(albums) != len(want) {
		t.Fatalf("albums = %v, want %v", albums, want)
	}
	for i := range want {
		if albums[i] != want[i] {
			t.Errorf("albums[%d] = %q, want %q", i, albums[i], want[i])
		}
	}
}

func TestScanIdempotent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeImage(t, root, "vacation", "a.jpg")
	writeImage(t, root, "home", "b.jpg")

	st := newTestStore(t)
	sc := New(st, []string{root}, mediatypes.DefaultExtensions(), 0)

	if _, err := sc.Scan(); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	result, err := sc.Scan()
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if result.Added != 0 || result.Retired != 0 {
		t.Errorf("second scan changed catalog: added=%d retired=%d", result.Added, result.Retired)
	}
	if result.Total != 2 {
		t.Errorf("Total = %d, want 2", result.Total)
	}
}

func TestScanRetiresMissingFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	keep := writeImage(t, root, "vacation", "keep.jpg")
	gone := writeImage(t, root, "vacation", "gone.jpg")

	st := newTestStore(t)
	sc := New(st, []string{root}, mediatypes.DefaultExtensions(), 0)

	if _, err := sc.Scan(); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove %s: %v", gone, err)
	}

	result, err := sc.Scan()
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if result.Retired != 1 {
		t.Errorf("Retired = %d, want 1", result.Retired)
	}
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}

	// The retired image is no longer selectable.
	for i := 0; i < 4; i++ {
		img, _, err := st.PickAndMark(context.Background(), nil)
		if err != nil {
			t.Fatalf("pick %d: %v", i, err)
		}
		if img.Path != keep {
			t.Fatalf("pick %d returned retired image %s", i, img.Path)
		}
	}
}

func TestScanStampsStrictlyIncrease(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	sc := New(st, []string{t.TempDir()}, mediatypes.DefaultExtensions(), 0)

	// Retirement compares last_seen_at < cutoff, so consecutive scans
	// must never share a stamp even if the clock has not advanced.
	prev := sc.nextScanStamp()
	for i := 0; i < 100; i++ {
		next := sc.nextScanStamp()
		if !next.After(prev) {
			t.Fatalf("stamp %d (%v) is not after its predecessor (%v)", i, next, prev)
		}
		if next.UnixNano() <= prev.UnixNano() {
			t.Fatalf("stamp %d does not increase at nanosecond precision: %d <= %d",
				i, next.UnixNano(), prev.UnixNano())
		}
		prev = next
	}
}

func TestScanPreservesShownAcrossRescan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeImage(t, root, "vacation", "a.jpg")
	writeImage(t, root, "vacation", "b.jpg")

	st := newTestStore(t)
	sc := New(st, []string{root}, mediatypes.DefaultExtensions(), 0)

	if _, err := sc.Scan(); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	first, _, err := st.PickAndMark(context.Background(), nil)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}

	if _, err := sc.Scan(); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	// The rescan must not reset progress: the next pick returns the
	// other image.
	second, _, err := st.PickAndMark(context.Background(), nil)
	if err != nil {
		t.Fatalf("pick after rescan: %v", err)
	}
	if second.Path == first.Path {
		t.Errorf("pick after rescan repeated %s; rescan reset rotation progress", first.Path)
	}
}

func TestScanMultipleRoots(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	rootB := t.TempDir()
	writeImage(t, rootA, "vacation", "a.jpg")
	writeImage(t, rootB, "vacation", "b.jpg")

	st := newTestStore(t)
	sc := New(st, []string{rootA, rootB}, mediatypes.DefaultExtensions(), 0)

	result, err := sc.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Added != 2 {
		t.Errorf("Added = %d, want 2", result.Added)
	}

	// Deleting rootB's file must not retire rootA's.
	if err := os.Remove(filepath.Join(rootB, "vacation", "b.jpg")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	result, err = sc.Scan()
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if result.Retired != 1 {
		t.Errorf("Retired = %d, want 1", result.Retired)
	}
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
}

func TestScanMissingRootSkipped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeImage(t, root, "vacation", "a.jpg")
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	st := newTestStore(t)
	sc := New(st, []string{root, missing}, mediatypes.DefaultExtensions(), 0)

	result, err := sc.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Added != 1 {
		t.Errorf("Added = %d, want 1", result.Added)
	}
}

func TestScanFollowsSymlinkOnce(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlink test requires a POSIX filesystem")
	}

	root := t.TempDir()
	writeImage(t, root, "vacation", "a.jpg")

	// A symlink loop back into the tree must not hang or duplicate.
	if err := os.Symlink(root, filepath.Join(root, "vacation", "loop")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	st := newTestStore(t)
	sc := New(st, []string{root}, mediatypes.DefaultExtensions(), 0)

	result, err := sc.Scan()
	if err != nil {
		t.Fatalf("Scan with symlink loop: %v", err)
	}
	if result.Added != 1 {
		t.Errorf("Added = %d, want 1", result.Added)
	}
}

func TestScanRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	sc := New(st, []string{t.TempDir()}, mediatypes.DefaultExtensions(), 0)

	if !sc.tryStartScanning() {
		t.Fatal("tryStartScanning failed on idle scanner")
	}
	defer sc.finishScanning()

	if _, err := sc.Scan(); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("concurrent Scan returned %v, want ErrScanInProgress", err)
	}
}
