package store

import "time"

// Image is one catalogued file. ID and Path are fixed at insertion; only
// Album, Shown and the timestamps mutate afterwards.
type Image struct {
	ID           int64      `json:"id"`
	Path         string     `json:"path"`
	SourceRoot   string     `json:"sourceRoot"`
	RelativePath string     `json:"relativePath"`
	Album        string     `json:"album"`
	Shown        bool       `json:"shown"`
	FirstSeenAt  time.Time  `json:"firstSeenAt"`
	LastShownAt  *time.Time `json:"lastShownAt,omitempty"`
}

// CatalogStats summarizes the catalog for health reporting.
type CatalogStats struct {
	TotalImages   int       `json:"totalImages"`
	TotalAlbums   int       `json:"totalAlbums"`
	UnshownImages int       `json:"unshownImages"`
	LastScanned   time.Time `json:"lastScanned"`
	ScanDuration  string    `json:"scanDuration"`
}
