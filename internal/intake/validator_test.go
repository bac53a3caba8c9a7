package intake

import (
	"errors"
	"testing"

	"github.com/dunamismax/artshield/internal/domain"
)

func validCanonical() map[string]any {
	return map[string]any{
		"artist_name":   "Jane Doe",
		"artwork_title": "Forest",
		"image_url":     "https://example.com/forest.png",
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	sub, err := Validate(validCanonical(), false)
	if err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}

	if sub.MaxDimension != domain.DefaultMaxDimension {
		t.Fatalf("expected default max_dimension, got %d", sub.MaxDimension)
	}
	if sub.WatermarkStrategy != domain.DefaultWatermarkStrategy {
		t.Fatalf("expected default watermark strategy, got %s", sub.WatermarkStrategy)
	}
	if len(sub.Processors) != 1 || sub.Processors[0] != "watermark" {
		t.Fatalf("expected default processors [watermark], got %v", sub.Processors)
	}
	if sub.PreserveMetadata {
		t.Fatal("expected preserve_metadata to default to false")
	}
}

func TestValidateRequiresArtistAndTitle(t *testing.T) {
	_, err := Validate(map[string]any{"artwork_title": "Forest"}, false)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "artist_name" {
		t.Fatalf("expected artist_name validation error, got %v", err)
	}

	_, err = Validate(map[string]any{"artist_name": "Jane Doe"}, false)
	if !errors.As(err, &verr) || verr.Field != "artwork_title" {
		t.Fatalf("expected artwork_title validation error, got %v", err)
	}
}

func TestValidateImageSourcePrecedence(t *testing.T) {
	canonical := validCanonical()
	canonical["image_path"] = "/mnt/art/forest.png"

	sub, err := Validate(canonical, true)
	if err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
	if sub.SourceKind != domain.SourceFile {
		t.Fatalf("expected file to win precedence, got %s", sub.SourceKind)
	}

	sub, err = Validate(canonical, false)
	if err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
	if sub.SourceKind != domain.SourceURL {
		t.Fatalf("expected url to outrank path, got %s", sub.SourceKind)
	}

	delete(canonical, "image_url")
	sub, err = Validate(canonical, false)
	if err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
	if sub.SourceKind != domain.SourcePath {
		t.Fatalf("expected path as last resort, got %s", sub.SourceKind)
	}
}

func TestValidateRequiresAnImageSource(t *testing.T) {
	_, err := Validate(map[string]any{
		"artist_name":   "Jane Doe",
		"artwork_title": "Forest",
	}, false)

	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "image" {
		t.Fatalf("expected image source validation error, got %v", err)
	}
}

func TestValidateDimensionBounds(t *testing.T) {
	for _, dim := range []int{127, 4097} {
		canonical := validCanonical()
		canonical["max_dimension"] = dim

		_, err := Validate(canonical, false)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != "max_dimension" {
			t.Fatalf("expected max_dimension error for %d, got %v", dim, err)
		}
	}

	canonical := validCanonical()
	canonical["max_dimension"] = 128
	sub, err := Validate(canonical, false)
	if err != nil {
		t.Fatalf("expected 128 to be accepted, got %v", err)
	}
	if sub.MaxDimension != 128 {
		t.Fatalf("expected max_dimension=128, got %d", sub.MaxDimension)
	}
}

func TestValidateEnumMembership(t *testing.T) {
	canonical := validCanonical()
	canonical["processors"] = []string{"watermark", "sharpen"}
	_, err := Validate(canonical, false)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "processors" {
		t.Fatalf("expected processors validation error, got %v", err)
	}

	canonical = validCanonical()
	canonical["watermark_strategy"] = "sideways"
	_, err = Validate(canonical, false)
	if !errors.As(err, &verr) || verr.Field != "watermark_strategy" {
		t.Fatalf("expected watermark_strategy validation error, got %v", err)
	}
}

func TestValidateStopsAtFirstError(t *testing.T) {
	// Both artist_name and the image source are missing; the earlier check
	// in the order wins.
	_, err := Validate(map[string]any{}, false)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "artist_name" {
		t.Fatalf("expected first-error to be artist_name, got %v", err)
	}
}
