package intake

import (
	"fmt"

	"github.com/dunamismax/artshield/internal/domain"
)

// Validate enforces the submission schema over a canonical request and
// returns a fully defaulted Submission. Checks run in a fixed order and stop
// at the first violation. hasFile reports whether the request carried an
// embedded image buffer, which outranks image_url and image_path as the
// source.
func Validate(canonical map[string]any, hasFile bool) (domain.Submission, error) {
	var sub domain.Submission

	sub.ArtistName, _ = canonical["artist_name"].(string)
	if sub.ArtistName == "" {
		return sub, &domain.ValidationError{Field: "artist_name", Reason: "required"}
	}
	sub.ArtworkTitle, _ = canonical["artwork_title"].(string)
	if sub.ArtworkTitle == "" {
		return sub, &domain.ValidationError{Field: "artwork_title", Reason: "required"}
	}

	sub.ImageURL, _ = canonical["image_url"].(string)
	sub.ImagePath, _ = canonical["image_path"].(string)
	switch {
	case hasFile:
		sub.SourceKind = domain.SourceFile
	case sub.ImageURL != "":
		sub.SourceKind = domain.SourceURL
	case sub.ImagePath != "":
		sub.SourceKind = domain.SourcePath
	default:
		return sub, &domain.ValidationError{Field: "image", Reason: "one of file, image_url or image_path is required"}
	}

	if len(sub.ArtistName) > domain.MaxArtistLen {
		return sub, &domain.ValidationError{
			Field:  "artist_name",
			Reason: fmt.Sprintf("exceeds %d characters", domain.MaxArtistLen),
		}
	}
	if len(sub.ArtworkTitle) > domain.MaxTitleLen {
		return sub, &domain.ValidationError{
			Field:  "artwork_title",
			Reason: fmt.Sprintf("exceeds %d characters", domain.MaxTitleLen),
		}
	}
	sub.Description, _ = canonical["description"].(string)
	if len(sub.Description) > domain.MaxDescription {
		return sub, &domain.ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("exceeds %d characters", domain.MaxDescription),
		}
	}

	sub.MaxDimension = domain.DefaultMaxDimension
	if raw, ok := canonical["max_dimension"]; ok {
		dim, _ := raw.(int)
		if dim < domain.MinDimension || dim > domain.MaxDimension {
			return sub, &domain.ValidationError{
				Field:  "max_dimension",
				Reason: fmt.Sprintf("must be between %d and %d", domain.MinDimension, domain.MaxDimension),
			}
		}
		sub.MaxDimension = dim
	}

	sub.Processors = []string{"watermark"}
	if raw, ok := canonical["processors"]; ok {
		procs, _ := raw.([]string)
		if len(procs) > 0 {
			for _, p := range procs {
				if !domain.AllowedProcessors[p] {
					return sub, &domain.ValidationError{Field: "processors", Reason: fmt.Sprintf("unknown processor %q", p)}
				}
			}
			sub.Processors = procs
		}
	}

	sub.WatermarkStrategy = domain.DefaultWatermarkStrategy
	if raw, ok := canonical["watermark_strategy"]; ok {
		strategy, _ := raw.(string)
		if strategy != "" {
			if !domain.AllowedWatermarkStrategies[strategy] {
				return sub, &domain.ValidationError{
					Field:  "watermark_strategy",
					Reason: fmt.Sprintf("unknown strategy %q", strategy),
				}
			}
			sub.WatermarkStrategy = strategy
		}
	}

	if tags, ok := canonical["tags"].([]string); ok {
		sub.Tags = tags
	}
	if preserve, ok := canonical["preserve_metadata"].(bool); ok {
		sub.PreserveMetadata = preserve
	}
	sub.NotifyURL, _ = canonical["notify_url"].(string)
	if extra, ok := canonical["extra_metadata"].(map[string]any); ok {
		sub.ExtraMetadata = extra
	}

	return sub, nil
}
