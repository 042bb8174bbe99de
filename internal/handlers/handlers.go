package handlers

import (
	"context"
	"net/http"
	"time"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/database"
	"random-pictures/internal/filesystem"
	"random-pictures/internal/gallery"
	"random-pictures/internal/indexer"
	"random-pictures/internal/media"
)

// ScanHistory reads persisted scan outcomes.
type ScanHistory interface {
	RecentScans(ctx context.Context, limit int) ([]database.ScanRecord, error)
}

// Deps are the collaborators the handlers serve from. History and Events
// may be nil; their routes then answer 404.
type Deps struct {
	Gallery     *gallery.Service
	Validator   *filesystem.Validator
	Thumbnailer *media.Thumbnailer
	Indexer     *indexer.Indexer
	History     ScanHistory
	Events      http.Handler
}

type Handlers struct {
	gallery     *gallery.Service
	validator   *filesystem.Validator
	thumbnailer *media.Thumbnailer
	indexer     *indexer.Indexer
	history     ScanHistory
	events      http.Handler

	cacheTTL time.Duration
	retry    filesystem.RetryConfig
}

// New creates the handlers. A non-positive cacheTTL uses cachepolicy.DefaultTTL.
func New(deps Deps, cacheTTL time.Duration) *Handlers {
	if cacheTTL <= 0 {
		cacheTTL = cachepolicy.DefaultTTL
	}
	return &Handlers{
		gallery:     deps.Gallery,
		validator:   deps.Validator,
		thumbnailer: deps.Thumbnailer,
		indexer:     deps.Indexer,
		history:     deps.History,
		events:      deps.Events,
		cacheTTL:    cacheTTL,
		retry:       filesystem.DefaultRetryConfig(),
	}
}
