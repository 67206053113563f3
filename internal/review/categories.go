package review

import (
	"strings"

	"golang.org/x/text/cases"
)

// FallbackCategory absorbs anything the canonical list does not cover.
const FallbackCategory = "Uncategorized"

// standardCategories is the stock agency submission list. Matching is
// case-insensitive and tolerates spacing around slashes.
var standardCategories = []string{
	"Abstract",
	"Animals/Wildlife",
	"Arts",
	"Backgrounds/Textures",
	"Beauty/Fashion",
	"Buildings/Landmarks",
	"Business/Finance",
	"Celebrities",
	"Education",
	"Food and Drink",
	"Healthcare/Medical",
	"Holidays",
	"Industrial",
	"Interiors",
	"Miscellaneous",
	"Nature",
	"Objects",
	"Parks/Outdoor",
	"People",
	"Religion",
	"Science",
	"Signs/Symbols",
	"Sports/Recreation",
	"Technology",
	"Transportation",
	"Vintage",
}

// folder performs Unicode case folding for comparisons; ToLower misses
// non-ASCII pairs like İ/i.
var folder = cases.Fold()

var categoryIndex = buildCategoryIndex()

func buildCategoryIndex() map[string]string {
	index := make(map[string]string, len(standardCategories))
	for _, canonical := range standardCategories {
		index[categoryKey(canonical)] = canonical
	}
	return index
}

func categoryKey(raw string) string {
	key := folder.String(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " / ", "/")
	key = strings.ReplaceAll(key, "/ ", "/")
	key = strings.ReplaceAll(key, " /", "/")
	return strings.Join(strings.Fields(key), " ")
}

// CanonicalCategory maps raw onto the standard category list. Unknown or empty
// values map to the fallback so every finalized record carries a category the
// agency will accept.
func CanonicalCategory(raw string) string {
	key := categoryKey(raw)
	if key == "" {
		return FallbackCategory
	}
	if canonical, ok := categoryIndex[key]; ok {
		return canonical
	}
	return FallbackCategory
}

// StandardCategories returns the canonical category list in submission order.
func StandardCategories() []string {
	out := make([]string, len(standardCategories))
	copy(out, standardCategories)
	return out
}
