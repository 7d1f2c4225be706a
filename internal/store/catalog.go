package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// scopeWhere builds the WHERE fragment for an optional album filter.
// A nil filter matches the whole catalog.
func scopeWhere(filter *string) (string, []interface{}) {
	if filter == nil {
		return "1=1", nil
	}
	return "album = ?", []interface{}{*filter}
}

// UpsertImage inserts an image on first discovery or, if the path is
// already catalogued, refreshes its album assignment and last-seen stamp
// while leaving shown and the shown timestamps untouched. Returns true
// if a new row was inserted. Must be called within a scan transaction.
//
// last_seen_at is stored at nanosecond precision: RemoveMissing compares
// it against the next scan's stamp, and back-to-back scans can start
// within the same wall-clock second.
func (s *Store) UpsertImage(tx *sql.Tx, path, sourceRoot, relativePath, album string, seenAt time.Time) (bool, error) {
	ctx := context.Background()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM images WHERE path = ?)", path,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for existing image %s: %w", path, err)
	}

	query := `
	INSERT INTO images (path, source_root, relative_path, album, shown, first_seen_at, last_seen_at)
	VALUES (?, ?, ?, ?, 0, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		source_root = excluded.source_root,
		relative_path = excluded.relative_path,
		album = excluded.album,
		last_seen_at = excluded.last_seen_at
	`

	if _, err := tx.ExecContext(ctx, query, path, sourceRoot, relativePath, album, seenAt.Unix(), seenAt.UnixNano()); err != nil {
		return false, fmt.Errorf("failed to upsert image %s: %w", path, err)
	}

	return !exists, nil
}

// RemoveMissing retires rows under sourceRoot that were not seen by the
// scan stamped cutoff. Rows from other roots are untouched. Must be
// called within the same transaction as the scan's upserts so a crash
// cannot leave a missing file selectable. The caller guarantees cutoff
// is strictly later than every earlier scan's stamp; with that, a file
// deleted between two scans is retired even when both scans start
// within the same second.
func (s *Store) RemoveMissing(tx *sql.Tx, sourceRoot string, cutoff time.Time) (int64, error) {
	result, err := tx.ExecContext(context.Background(),
		"DELETE FROM images WHERE source_root = ? AND last_seen_at < ?",
		sourceRoot, cutoff.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to retire missing images under %s: %w", sourceRoot, err)
	}

	return result.RowsAffected()
}

// ListAlbums returns the distinct album names in the catalog, sorted.
func (s *Store) ListAlbums(ctx context.Context) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_albums", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT album FROM images ORDER BY album")
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	defer rows.Close()

	var albums []string
	for rows.Next() {
		var album string
		if err = rows.Scan(&album); err != nil {
			return nil, fmt.Errorf("failed to scan album row: %w", err)
		}
		albums = append(albums, album)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read album rows: %w", err)
	}

	return albums, nil
}

// Candidates returns every image in the given scope. A nil filter means
// the whole catalog.
func (s *Store) Candidates(ctx context.Context, filter *string) ([]Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("candidates", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	where, args := scopeWhere(filter)
	query := `
	SELECT id, path, source_root, relative_path, album, shown, first_seen_at, last_shown_at
	FROM images WHERE ` + where + ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if img, err = scanImage(rows.Scan); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidate rows: %w", err)
	}

	return images, nil
}

// GetImageByPath retrieves a single image by its absolute path.
func (s *Store) GetImageByPath(ctx context.Context, path string) (*Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_image", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
	SELECT id, path, source_root, relative_path, album, shown, first_seen_at, last_shown_at
	FROM images WHERE path = ?`, path)

	img, err := scanImage(row.Scan)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// MarkShown marks a single image as shown in the current cycle.
func (s *Store) MarkShown(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_shown", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		"UPDATE images SET shown = 1, last_shown_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark image %d shown: %w", id, err)
	}
	return nil
}

// ResetShown clears the shown flag for every image in the scope, starting
// a fresh rotation cycle there. Identity rows are untouched. Returns the
// number of images reset.
func (s *Store) ResetShown(ctx context.Context, filter *string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("reset_shown", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	where, args := scopeWhere(filter)
	result, err := s.db.ExecContext(ctx, "UPDATE images SET shown = 0 WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset shown flags: %w", err)
	}

	return result.RowsAffected()
}

// scanImage reads one image row with the canonical column order.
func scanImage(scan func(dest ...interface{}) error) (Image, error) {
	var img Image
	var shown int
	var firstSeen int64
	var lastShown sql.NullInt64

	if err := scan(
		&img.ID, &img.Path, &img.SourceRoot, &img.RelativePath,
		&img.Album, &shown, &firstSeen, &lastShown,
	); err != nil {
		return Image{}, err
	}

	img.Shown = shown != 0
	img.FirstSeenAt = time.Unix(firstSeen, 0)
	if lastShown.Valid {
		t := time.Unix(lastShown.Int64, 0)
		img.LastShownAt = &t
	}
	return img, nil
}
