// Package prompt assembles the fixed prompt templates sent to the
// external AI APIs. Everything here is deterministic string formatting.
package prompt

import (
	"fmt"
	"strings"
)

// TagContext is the name/description pair of one selected style tag.
type TagContext struct {
	Name        string
	Description string
}

const imageTemplate = `Create a traditional kram textile pattern artwork.

Subject: {{PROMPT}}

Style brief:
- Hand-woven textile aesthetic with visible thread texture
- Repeating geometric motifs arranged in symmetric bands
- Natural dye palette: indigo, madder red, turmeric ochre, undyed cotton
- Flat, ornamental composition; no perspective, no photorealism
- Rendering mood: {{STYLE}}
{{TAG_CONTEXT}}
The result must read as a single continuous woven panel.`

const descriptionTemplate = `You are a textile art curator. Write a concise gallery description
(2-3 sentences) for the generated kram pattern shown in the image.
Mention the motif, the palette and the weaving character.
The pattern was generated from this request: {{PROMPT}}
Respond with the description text only, no preamble.`

const tagTemplate = `You are a textile archivist. Given a kram pattern generated from the
request below, list 3 to 6 short lowercase keyword tags describing its
motif, palette and mood. Respond with the tags only, comma-separated,
no numbering and no extra text.
Request: {{PROMPT}}
Description: {{DESCRIPTION}}`

// BuildImagePrompt renders the image-generation prompt from the user
// prompt, the selected tag contexts and the requested style flag.
func BuildImagePrompt(userPrompt string, tags []TagContext, style string) string {
	var tagBlock string
	if len(tags) > 0 {
		var b strings.Builder
		b.WriteString("- Incorporate these traditional style references:\n")
		for _, t := range tags {
			b.WriteString(fmt.Sprintf("  * %s: %s\n", t.Name, t.Description))
		}
		tagBlock = b.String()
	}

	out := strings.ReplaceAll(imageTemplate, "{{PROMPT}}", userPrompt)
	out = strings.ReplaceAll(out, "{{STYLE}}", style)
	out = strings.ReplaceAll(out, "{{TAG_CONTEXT}}", tagBlock)
	return out
}

// BuildDescriptionPrompt renders the curator prompt for the description call.
func BuildDescriptionPrompt(userPrompt string) string {
	return strings.ReplaceAll(descriptionTemplate, "{{PROMPT}}", userPrompt)
}

// BuildTagPrompt renders the archivist prompt for the auto-tagging call.
func BuildTagPrompt(userPrompt, description string) string {
	out := strings.ReplaceAll(tagTemplate, "{{PROMPT}}", userPrompt)
	return strings.ReplaceAll(out, "{{DESCRIPTION}}", description)
}

// ParseTags splits a comma-separated tag string into normalized tags:
// trimmed, lowercased, empties dropped.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(p))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
