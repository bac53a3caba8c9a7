// Package intake turns heterogeneous client input into validated protection
// submissions. Normalization canonicalizes key names and coerces loosely
// typed values; validation enforces the submission schema.
package intake

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dunamismax/artshield/internal/domain"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindInt
	kindList
	kindObject
)

// canonicalFields is the full canonical request schema: snake_case name to
// value kind. Keys not listed here are dropped during normalization.
var canonicalFields = map[string]fieldKind{
	"artist_name":        kindString,
	"artwork_title":      kindString,
	"description":        kindString,
	"tags":               kindList,
	"processors":         kindList,
	"watermark_strategy": kindString,
	"image_url":          kindString,
	"image_path":         kindString,
	"max_dimension":      kindInt,
	"preserve_metadata":  kindBool,
	"notify_url":         kindString,
	"extra_metadata":     kindObject,
}

// fieldAliases maps accepted external spellings to canonical names. The
// table is checked for completeness at startup rather than converting key
// casing reflectively at request time.
var fieldAliases = map[string]string{
	"artistName":        "artist_name",
	"artworkTitle":      "artwork_title",
	"watermarkStrategy": "watermark_strategy",
	"imageUrl":          "image_url",
	"imageURL":          "image_url",
	"imagePath":         "image_path",
	"maxDimension":      "max_dimension",
	"preserveMetadata":  "preserve_metadata",
	"notifyUrl":         "notify_url",
	"notifyURL":         "notify_url",
	"extraMetadata":     "extra_metadata",
}

func init() {
	for alias, canonical := range fieldAliases {
		if _, ok := canonicalFields[canonical]; !ok {
			panic(fmt.Sprintf("intake: alias %q targets unknown canonical field %q", alias, canonical))
		}
	}
}

// Normalize canonicalizes a raw key/value map from a JSON body or multipart
// form. Keys are renamed through the alias table, boolean-like and
// JSON-string values are coerced, and comma-separated strings become ordered
// lists. The result only contains known canonical fields. Normalize is
// side-effect-free and idempotent.
func Normalize(raw map[string]any) (map[string]any, error) {
	canonical := make(map[string]any, len(raw))
	for key, value := range raw {
		name := key
		if alias, ok := fieldAliases[key]; ok {
			name = alias
		}
		kind, ok := canonicalFields[name]
		if !ok {
			continue
		}

		coerced, err := coerce(name, kind, value)
		if err != nil {
			return nil, err
		}
		canonical[name] = coerced
	}

	if tags, ok := canonical["tags"].([]string); ok {
		if len(tags) > domain.MaxTags {
			return nil, &domain.NormalizationError{
				Field:  "tags",
				Reason: fmt.Sprintf("at most %d tags are allowed, got %d", domain.MaxTags, len(tags)),
			}
		}
		for _, tag := range tags {
			if len(tag) > domain.MaxTagLength {
				return nil, &domain.NormalizationError{
					Field:  "tags",
					Reason: fmt.Sprintf("tag %q exceeds %d characters", tag, domain.MaxTagLength),
				}
			}
		}
	}

	return canonical, nil
}

func coerce(name string, kind fieldKind, value any) (any, error) {
	switch kind {
	case kindString:
		s, ok := value.(string)
		if !ok {
			return nil, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected string, got %T", value)}
		}
		return strings.TrimSpace(s), nil

	case kindBool:
		return coerceBool(name, value)

	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		case string:
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err != nil {
				return nil, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected integer, got %q", v)}
			}
			return n, nil
		default:
			return nil, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected integer, got %T", value)}
		}

	case kindList:
		return coerceList(name, value)

	case kindObject:
		switch v := value.(type) {
		case map[string]any:
			return v, nil
		case string:
			var parsed map[string]any
			if err := json.Unmarshal([]byte(v), &parsed); err != nil {
				return nil, &domain.NormalizationError{Field: name, Reason: "malformed JSON object"}
			}
			return parsed, nil
		default:
			return nil, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected object, got %T", value)}
		}
	}

	return nil, &domain.NormalizationError{Field: name, Reason: "unsupported field kind"}
}

func coerceBool(name string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return false, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected boolean, got %q", v)}
	case float64:
		if v == 1 {
			return true, nil
		}
		if v == 0 {
			return false, nil
		}
		return false, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected boolean, got %v", v)}
	case int:
		if v == 1 {
			return true, nil
		}
		if v == 0 {
			return false, nil
		}
		return false, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected boolean, got %d", v)}
	default:
		return false, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected boolean, got %T", value)}
	}
}

// coerceList splits comma-separated strings into ordered entries. Order is
// preserved and duplicates are kept.
func coerceList(name string, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected string entries, got %T", item)}
			}
			out = append(out, strings.TrimSpace(s))
		}
		return out, nil
	default:
		return nil, &domain.NormalizationError{Field: name, Reason: fmt.Sprintf("expected list, got %T", value)}
	}
}
