package rotation

import "sync"

// Session holds the process-wide active album filter. It lives only for
// the process lifetime and is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	album *string
}

// NewSession returns a Session with no active filter (all albums).
func NewSession() *Session {
	return &Session{}
}

// SetAlbum sets the active album filter. nil or an empty string clears
// the filter back to "all albums".
func (s *Session) SetAlbum(album *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if album == nil || *album == "" {
		s.album = nil
		return
	}
	a := *album
	s.album = &a
}

// Clear removes the active album filter.
func (s *Session) Clear() {
	s.SetAlbum(nil)
}

// Current returns the active album filter, or nil for all albums.
func (s *Session) Current() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.album == nil {
		return nil
	}
	a := *s.album
	return &a
}
