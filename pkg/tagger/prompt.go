package tagger

import (
	"strconv"
	"strings"
)

// defaultTaggingPrompt instructs the vision model to label every attached
// tile image with taxonomy tags. The reply must be strict JSON so the
// validator can check it against the request.
const defaultTaggingPrompt = `You are labeling tiles from a 2D game tileset.
You are given {{COUNT}} tile images, in order. For EACH tile, choose the
descriptive tags that apply from this fixed list (format "category.subcategory"):

{{TAGS}}

Respond with ONLY a JSON object of this exact shape, no prose, no code fences:
{"tiles": [{"tags": [{"category": "...", "subcategory": "...", "confidence": 0.0}]}]}

The "tiles" array must contain exactly {{COUNT}} entries, one per input image,
in the same order. "confidence" is your certainty in [0,1]. Use only tags from
the list above. A tile may have several tags or, if truly unidentifiable, none.`

// defaultLayoutPrompt asks a model for a grid of tag labels matching the
// requested bounds; the generator maps labels to concrete tiles afterwards.
const defaultLayoutPrompt = `You are designing a tile map layout for a 2D game.

Description of the desired map:
{{DESCRIPTION}}

The map is exactly {{WIDTH}} columns wide and {{HEIGHT}} rows tall.
Place tiles using ONLY these labels (format "category.subcategory"):

{{LABELS}}

Respond with ONLY a JSON object of this exact shape, no prose, no code fences:
{"rows": [["label", "label", ...], ...]}

"rows" must contain exactly {{HEIGHT}} arrays, each with exactly {{WIDTH}}
labels, top row first. Every label must come from the list above.`

// BuildTaggingPrompt renders the tagging template for a batch of count tiles.
// An empty template falls back to the built-in one.
func BuildTaggingPrompt(template string, taxonomy Taxonomy, count int) string {
	if template == "" {
		template = defaultTaggingPrompt
	}
	prompt := strings.ReplaceAll(template, "{{TAGS}}", strings.Join(taxonomy.TagList(), ", "))
	prompt = strings.ReplaceAll(prompt, "{{COUNT}}", strconv.Itoa(count))
	return prompt
}

// BuildLayoutPrompt renders the layout template for a map generation request.
func BuildLayoutPrompt(template, description string, width, height int, labels []string) string {
	if template == "" {
		template = defaultLayoutPrompt
	}
	prompt := strings.ReplaceAll(template, "{{DESCRIPTION}}", description)
	prompt = strings.ReplaceAll(prompt, "{{WIDTH}}", strconv.Itoa(width))
	prompt = strings.ReplaceAll(prompt, "{{HEIGHT}}", strconv.Itoa(height))
	prompt = strings.ReplaceAll(prompt, "{{LABELS}}", strings.Join(labels, ", "))
	return prompt
}

// StripCodeFences removes a ```json ... ``` wrapper some models insist on
// despite instructions.
func StripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
