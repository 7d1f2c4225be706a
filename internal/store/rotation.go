package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"picture-frame/internal/logging"
	"picture-frame/internal/metrics"
)

// PickAndMark atomically selects one unshown image in the scope, marks it
// shown and commits. If the scope is exhausted the shown flags for the
// scope (and only the scope) are cleared first, so the pick that detects
// exhaustion also starts the next cycle. Returns the chosen image and
// whether a cycle reset happened.
//
// The read-check-reset-pick-mark sequence runs as a single transaction
// under the store lock: two concurrent callers can never select the same
// unshown image, and the second of two callers racing an exhausted scope
// observes the first caller's reset-and-pick, never a second reset.
func (s *Store) PickAndMark(ctx context.Context, filter *string) (*Image, bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("pick_and_mark", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin selection transaction: %w", err)
	}

	img, reset, err := s.pickAndMarkTx(ctx, tx, filter)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Error("failed to roll back selection transaction: %v", rbErr)
		}
		return nil, false, err
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit selection: %w", err)
	}

	if reset {
		metrics.RotationCycleResets.Inc()
		logging.Info("Rotation cycle exhausted for scope %s, starting a new cycle", scopeLabel(filter))
	}

	return img, reset, nil
}

func (s *Store) pickAndMarkTx(ctx context.Context, tx *sql.Tx, filter *string) (*Image, bool, error) {
	where, args := scopeWhere(filter)

	var total int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM images WHERE "+where, args...,
	).Scan(&total); err != nil {
		return nil, false, fmt.Errorf("failed to count selection scope: %w", err)
	}
	if total == 0 {
		return nil, false, ErrNoImages
	}

	img, err := pickUnshown(ctx, tx, where, args)
	reset := false
	if errors.Is(err, sql.ErrNoRows) {
		// Cycle exhaustion: every image in scope has been shown. Clear
		// the scope's flags and pick again; other scopes keep their
		// progress.
		if _, err = tx.ExecContext(ctx, "UPDATE images SET shown = 0 WHERE "+where, args...); err != nil {
			return nil, false, fmt.Errorf("failed to reset exhausted cycle: %w", err)
		}
		reset = true
		img, err = pickUnshown(ctx, tx, where, args)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to pick next image: %w", err)
	}

	shownAt := time.Now()
	if _, err = tx.ExecContext(ctx,
		"UPDATE images SET shown = 1, last_shown_at = ? WHERE id = ?",
		shownAt.Unix(), img.ID,
	); err != nil {
		return nil, false, fmt.Errorf("failed to mark image %d shown: %w", img.ID, err)
	}

	img.Shown = true
	t := time.Unix(shownAt.Unix(), 0)
	img.LastShownAt = &t

	return &img, reset, nil
}

// pickUnshown selects one unshown image in the scope uniformly at random.
// Random order keeps the display unpredictable and insensitive to catalog
// insertion order while still covering every image before any repeat.
func pickUnshown(ctx context.Context, tx *sql.Tx, where string, args []interface{}) (Image, error) {
	row := tx.QueryRowContext(ctx, `
	SELECT id, path, source_root, relative_path, album, shown, first_seen_at, last_shown_at
	FROM images WHERE `+where+` AND shown = 0 ORDER BY RANDOM() LIMIT 1`, args...)

	return scanImage(row.Scan)
}

func scopeLabel(filter *string) string {
	if filter == nil {
		return "(all albums)"
	}
	return *filter
}
