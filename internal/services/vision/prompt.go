package vision

import (
	"fmt"
	"strings"
)

// MetadataPrompt captures the instructions sent with every image analysis
// request. Keep updates centralized here so wording changes do not require
// hunting through call sites.
const MetadataPrompt = `Analyze this image for stock photography submission.

Respond with PURE JSON only, no markdown formatting and no code fences, using exactly these keys:

- "Title": a concise, factual title (5 to 70 characters, no quotes or special punctuation).
- "Description": a single descriptive sentence suitable for an agency caption (20 to 200 characters).
- "Keywords": 15 to 40 relevant search keywords, most specific first, as a JSON array of strings.
- "Category": one standard stock photography category that best fits the image.

Describe only what is visible. Avoid brand names, personal names, and speculation.`

// AnalysisPrompt combines the base instructions with an optional operator
// hint. The hint wins over visual inference when the two disagree.
func AnalysisPrompt(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return MetadataPrompt
	}
	return fmt.Sprintf("%s\n\nAdditional context provided by the photographer: %s\nIf this context contradicts what the image appears to show, trust the context.", MetadataPrompt, hint)
}
