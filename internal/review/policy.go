package review

import (
	"fmt"
	"strings"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/services"
)

// Policy controls which metadata fields operators must supply before a record
// can be finalized. Keyword deduplication and category canonicalization are
// not policy; they always apply.
type Policy struct {
	RequireTitle       bool
	RequireDescription bool
	MaxKeywords        int
}

// FromConfig builds the review policy from configuration.
func FromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{RequireTitle: true, RequireDescription: true}
	}
	return Policy{
		RequireTitle:       cfg.Review.RequireTitle,
		RequireDescription: cfg.Review.RequireDescription,
		MaxKeywords:        cfg.Review.MaxKeywords,
	}
}

// Normalize returns a cleaned copy of fields: whitespace trimmed, keywords
// deduplicated case-insensitively in first-seen order and capped at
// MaxKeywords, category mapped onto the canonical list.
func (p Policy) Normalize(fields catalog.MetadataFields) catalog.MetadataFields {
	out := catalog.MetadataFields{
		Title:       strings.TrimSpace(fields.Title),
		Description: strings.TrimSpace(fields.Description),
		Category:    CanonicalCategory(fields.Category),
	}
	out.Keywords = dedupeKeywords(fields.Keywords, p.MaxKeywords)
	return out
}

// Validate reports whether fields satisfy the policy. Violations come back as
// validation errors naming the offending field.
func (p Policy) Validate(fields catalog.MetadataFields) error {
	if p.RequireTitle && strings.TrimSpace(fields.Title) == "" {
		return services.Wrap(services.ErrValidation, "review", "validate fields", "title is required", nil)
	}
	if p.RequireDescription && strings.TrimSpace(fields.Description) == "" {
		return services.Wrap(services.ErrValidation, "review", "validate fields", "description is required", nil)
	}
	if len(fields.Keywords) == 0 {
		return services.Wrap(services.ErrValidation, "review", "validate fields", "at least one keyword is required", nil)
	}
	if p.MaxKeywords > 0 && len(fields.Keywords) > p.MaxKeywords {
		return services.Wrap(services.ErrValidation, "review", "validate fields",
			fmt.Sprintf("at most %d keywords allowed", p.MaxKeywords), nil)
	}
	return nil
}

// Apply normalizes fields and validates the result, returning the copy that
// should be persisted.
func (p Policy) Apply(fields catalog.MetadataFields) (catalog.MetadataFields, error) {
	normalized := p.Normalize(fields)
	if err := p.Validate(normalized); err != nil {
		return catalog.MetadataFields{}, err
	}
	return normalized, nil
}

func dedupeKeywords(keywords []string, limit int) []string {
	if len(keywords) == 0 {
		return nil
	}
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		key := folder.String(keyword)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, keyword)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
