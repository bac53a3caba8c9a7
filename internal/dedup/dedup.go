// Package dedup checks submissions against the backend for an existing
// artifact. Detection is best-effort: any backend failure degrades to "no
// duplicate" rather than blocking the submission.
package dedup

import (
	"context"
	"log"

	"github.com/dunamismax/artshield/internal/domain"
)

// Lookup is the slice of the backend client the deduplicator consumes.
type Lookup interface {
	FindByChecksum(ctx context.Context, checksum string) (*domain.DuplicateMatch, error)
	FindByTitleArtist(ctx context.Context, title, artist string) (*domain.DuplicateMatch, error)
	FindByTags(ctx context.Context, tags []string) (*domain.DuplicateMatch, error)
}

type Deduplicator struct {
	logger  *log.Logger
	backend Lookup
}

func New(logger *log.Logger, backend Lookup) *Deduplicator {
	return &Deduplicator{
		logger:  logger,
		backend: backend,
	}
}

// Query carries whatever identifying material the submission provided.
// Checksum is only set when an image buffer was uploaded.
type Query struct {
	Checksum string
	Title    string
	Artist   string
	Tags     []string
}

// Result reports whether a duplicate exists and, if so, the match.
type Result struct {
	Exists bool
	Match  *domain.DuplicateMatch
}

// Check evaluates the dedup strategies in strict priority order: exact
// checksum, exact title+artist, tag-set intersection. The first hit wins.
// When no strategy has usable input the backend is never contacted. Backend
// errors are logged and skipped (fail open).
func (d *Deduplicator) Check(ctx context.Context, q Query) Result {
	if q.Checksum != "" {
		if match := d.try("checksum", func() (*domain.DuplicateMatch, error) {
			return d.backend.FindByChecksum(ctx, q.Checksum)
		}); match != nil {
			return Result{Exists: true, Match: match}
		}
	}

	if q.Title != "" && q.Artist != "" {
		if match := d.try("title_artist", func() (*domain.DuplicateMatch, error) {
			return d.backend.FindByTitleArtist(ctx, q.Title, q.Artist)
		}); match != nil {
			return Result{Exists: true, Match: match}
		}
	}

	if len(q.Tags) > 0 {
		if match := d.try("tags", func() (*domain.DuplicateMatch, error) {
			return d.backend.FindByTags(ctx, q.Tags)
		}); match != nil {
			return Result{Exists: true, Match: match}
		}
	}

	return Result{}
}

func (d *Deduplicator) try(strategy string, fn func() (*domain.DuplicateMatch, error)) *domain.DuplicateMatch {
	match, err := fn()
	if err != nil {
		d.logger.Printf("dedup %s lookup failed, failing open err=%v", strategy, err)
		return nil
	}
	return match
}
