package rotation

import (
	"context"
	"errors"
	"fmt"

	"picture-frame/internal/logging"
	"picture-frame/internal/metrics"
	"picture-frame/internal/store"
)

// Engine is the rotation selector: it picks the next image for display,
// guaranteeing that every image in the active scope is shown once before
// any repeats. The actual pick-and-mark is delegated to the store's
// atomic operation; the engine contributes filter resolution, session
// state and result assembly.
type Engine struct {
	store   *store.Store
	session *Session
}

// ImageResult is one selection, with the metadata the display surface
// needs alongside the picked image.
type ImageResult struct {
	Path               string   `json:"path"`
	Album              string   `json:"album"`
	RelativePath       string   `json:"relativePath"`
	SourceRoot         string   `json:"sourceRoot"`
	CurrentAlbumFilter *string  `json:"currentAlbumFilter"`
	AvailableAlbums    []string `json:"availableAlbums"`
	CycleReset         bool     `json:"cycleReset"`
}

// New creates a rotation engine over the given catalog store.
func New(st *store.Store) *Engine {
	return &Engine{
		store:   st,
		session: NewSession(),
	}
}

// NextImage picks one unshown image and marks it shown. The effective
// scope is the explicit filter if given, otherwise the session's active
// filter, otherwise the whole catalog. Returns store.ErrNoImages when
// the scope matches nothing.
func (e *Engine) NextImage(ctx context.Context, explicit *string) (*ImageResult, error) {
	filter := explicit
	if filter == nil {
		filter = e.session.Current()
	}

	img, reset, err := e.store.PickAndMark(ctx, filter)
	if err != nil {
		if errors.Is(err, store.ErrNoImages) {
			metrics.RotationPicksTotal.WithLabelValues("empty").Inc()
			return nil, err
		}
		metrics.RotationPicksTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("selecting next image: %w", err)
	}
	metrics.RotationPicksTotal.WithLabelValues("ok").Inc()

	albums, err := e.store.ListAlbums(ctx)
	if err != nil {
		// The pick already committed; missing album metadata is not
		// worth failing the selection over.
		logging.Warn("Failed to list albums for selection metadata: %v", err)
	}

	return &ImageResult{
		Path:               img.Path,
		Album:              img.Album,
		RelativePath:       img.RelativePath,
		SourceRoot:         img.SourceRoot,
		CurrentAlbumFilter: filter,
		AvailableAlbums:    albums,
		CycleReset:         reset,
	}, nil
}

// SetAlbum sets the session's active album filter. The name is accepted
// without validation against the catalog: filtering by an album that has
// not been scanned yet simply yields no images until it appears.
func (e *Engine) SetAlbum(album *string) {
	e.session.SetAlbum(album)
	logging.Info("Active album filter set to %s", filterLabel(e.session.Current()))
}

// CurrentAlbum returns the session's active album filter.
func (e *Engine) CurrentAlbum() *string {
	return e.session.Current()
}

// Albums returns the distinct albums currently in the catalog.
func (e *Engine) Albums(ctx context.Context) ([]string, error) {
	return e.store.ListAlbums(ctx)
}

// ResetHistory clears rotation progress for the given scope (or the
// whole catalog if nil) without touching catalog rows. Returns how many
// images were reset.
func (e *Engine) ResetHistory(ctx context.Context, scope *string) (int64, error) {
	count, err := e.store.ResetShown(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("resetting history: %w", err)
	}

	metrics.RotationHistoryResets.Inc()
	logging.Info("Rotation history reset for scope %s (%d images)", filterLabel(scope), count)
	return count, nil
}

func filterLabel(filter *string) string {
	if filter == nil {
		return "(all albums)"
	}
	return *filter
}
