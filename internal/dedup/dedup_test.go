package dedup

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/dunamismax/artshield/internal/domain"
)

type fakeLookup struct {
	byChecksum    *domain.DuplicateMatch
	byTitleArtist *domain.DuplicateMatch
	byTags        *domain.DuplicateMatch
	err           error
	calls         int
}

func (f *fakeLookup) FindByChecksum(_ context.Context, _ string) (*domain.DuplicateMatch, error) {
	f.calls++
	return f.byChecksum, f.err
}

func (f *fakeLookup) FindByTitleArtist(_ context.Context, _, _ string) (*domain.DuplicateMatch, error) {
	f.calls++
	return f.byTitleArtist, f.err
}

func (f *fakeLookup) FindByTags(_ context.Context, _ []string) (*domain.DuplicateMatch, error) {
	f.calls++
	return f.byTags, f.err
}

func newTestDeduplicator(lookup *fakeLookup) *Deduplicator {
	return New(log.New(io.Discard, "", 0), lookup)
}

func TestChecksumOutranksTitleArtist(t *testing.T) {
	lookup := &fakeLookup{
		byChecksum:    &domain.DuplicateMatch{ArtifactID: "by-sum", MatchedBy: "checksum"},
		byTitleArtist: &domain.DuplicateMatch{ArtifactID: "by-title", MatchedBy: "title_artist"},
	}
	d := newTestDeduplicator(lookup)

	res := d.Check(context.Background(), Query{
		Checksum: "abc",
		Title:    "Forest",
		Artist:   "Jane Doe",
	})
	if !res.Exists {
		t.Fatal("expected a duplicate")
	}
	if res.Match.ArtifactID != "by-sum" {
		t.Fatalf("expected checksum match to win, got %s", res.Match.ArtifactID)
	}
	if lookup.calls != 1 {
		t.Fatalf("expected evaluation to stop at first hit, got %d calls", lookup.calls)
	}
}

func TestTitleArtistFallsBackToTags(t *testing.T) {
	lookup := &fakeLookup{
		byTags: &domain.DuplicateMatch{ArtifactID: "by-tags", MatchedBy: "tags"},
	}
	d := newTestDeduplicator(lookup)

	res := d.Check(context.Background(), Query{
		Title:  "Forest",
		Artist: "Jane Doe",
		Tags:   []string{"forest"},
	})
	if !res.Exists || res.Match.ArtifactID != "by-tags" {
		t.Fatalf("expected tag match, got %+v", res)
	}
}

func TestFailsOpenOnBackendError(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("backend unreachable")}
	d := newTestDeduplicator(lookup)

	res := d.Check(context.Background(), Query{
		Checksum: "abc",
		Title:    "Forest",
		Artist:   "Jane Doe",
		Tags:     []string{"forest"},
	})
	if res.Exists {
		t.Fatal("expected fail-open to report no duplicate")
	}
}

func TestNoCriteriaSkipsBackend(t *testing.T) {
	lookup := &fakeLookup{}
	d := newTestDeduplicator(lookup)

	res := d.Check(context.Background(), Query{})
	if res.Exists {
		t.Fatal("expected no duplicate")
	}
	if lookup.calls != 0 {
		t.Fatalf("expected no backend call without criteria, got %d", lookup.calls)
	}
}
