package scriptgen

import (
	"fmt"
	"strings"

	"reelsmith/internal/analyze"
	"reelsmith/internal/queue"
)

// wordsPerMinute is the pacing assumption used to size scripts to the
// requested duration.
const wordsPerMinute = 140

const systemPrompt = `You write narration scripts for short presenter-style videos about software projects.
Write flowing spoken prose, no stage directions, no markdown, no emoji.
Split the script into sections separated by blank lines; each section starts
with a [MM:SS] timestamp marker on its own. Stay close to the requested word
count and write entirely in the requested language.`

// BuildPrompt assembles the user prompt for a job's script.
func BuildPrompt(content analyze.Content, opts queue.Options, language string) string {
	var b strings.Builder

	words := opts.DurationMinutes * wordsPerMinute
	fmt.Fprintf(&b, "Write a %d-minute (~%d words) %s video script in language %q.\n\n",
		opts.DurationMinutes, words, styleLabel(opts.Style), language)

	fmt.Fprintf(&b, "Subject: %s\n", content.Title)
	if content.Description != "" {
		fmt.Fprintf(&b, "Summary: %s\n", content.Description)
	}
	if content.Language != "" {
		fmt.Fprintf(&b, "Main programming language: %s\n", content.Language)
	}
	if len(content.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(content.Topics, ", "))
	}
	if content.Body != "" {
		fmt.Fprintf(&b, "\nSource material:\n%s\n", content.Body)
	}
	if instructions := strings.TrimSpace(opts.Instructions); instructions != "" {
		fmt.Fprintf(&b, "\nAdditional instructions from the requester:\n%s\n", instructions)
	}

	return b.String()
}

func styleLabel(style string) string {
	switch style {
	case "review":
		return "review"
	case "quick_start":
		return "quick-start tutorial"
	default:
		return "tutorial"
	}
}
