package scriptgen

import (
	"regexp"
	"strings"
)

// Section is one narration segment of a script.
type Section struct {
	Timestamp string
	Text      string
}

var timestampRE = regexp.MustCompile(`^\[(\d{1,2}:\d{2})\]\s*`)

// ParseSections splits a script into sections on [MM:SS] markers. Scripts
// without markers fall back to paragraph splitting, and a script with no
// blank lines yields a single section.
func ParseSections(script string) []Section {
	trimmed := strings.TrimSpace(script)
	if trimmed == "" {
		return nil
	}

	var sections []Section
	var current *Section

	for _, line := range strings.Split(trimmed, "\n") {
		if match := timestampRE.FindStringSubmatch(strings.TrimSpace(line)); match != nil {
			if current != nil && strings.TrimSpace(current.Text) != "" {
				current.Text = strings.TrimSpace(current.Text)
				sections = append(sections, *current)
			}
			rest := timestampRE.ReplaceAllString(strings.TrimSpace(line), "")
			current = &Section{Timestamp: match[1], Text: rest}
			continue
		}
		if current == nil {
			current = &Section{}
		}
		current.Text += "\n" + line
	}
	if current != nil && strings.TrimSpace(current.Text) != "" {
		current.Text = strings.TrimSpace(current.Text)
		sections = append(sections, *current)
	}

	if len(sections) <= 1 && (len(sections) == 0 || sections[0].Timestamp == "") {
		return paragraphSections(trimmed)
	}
	return sections
}

func paragraphSections(script string) []Section {
	var sections []Section
	for _, paragraph := range strings.Split(script, "\n\n") {
		if text := strings.TrimSpace(paragraph); text != "" {
			sections = append(sections, Section{Text: text})
		}
	}
	return sections
}

// PlainText strips the timestamp markers, returning the narration text alone.
// This is the form handed to speech synthesis.
func PlainText(script string) string {
	sections := ParseSections(script)
	parts := make([]string, 0, len(sections))
	for _, section := range sections {
		parts = append(parts, section.Text)
	}
	return strings.Join(parts, "\n\n")
}

// WordCount counts whitespace-separated words in a script.
func WordCount(script string) int {
	return len(strings.Fields(PlainText(script)))
}
