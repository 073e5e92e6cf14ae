package llm

import (
	"regexp"
	"strings"
)

var (
	sectionLabel = regexp.MustCompile(`(?i)^\[?\(?\s*(verse|chorus|refrain|bridge|intro|outro|couplet|pre-chorus)\s*\d*\s*\)?\]?\s*:?\s*$`)
	titleLine    = regexp.MustCompile(`(?i)^(title|tit)\s*:`)
	emphasis     = strings.NewReplacer("**", "", "__", "", "*", "", "`", "")
)

// CleanLyrics strips the formatting models add despite being told not to:
// code fences, markdown headings and emphasis, title lines and section
// labels. Runs of blank lines collapse to a single stanza break.
func CleanLyrics(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// Strip markdown code fences
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		line = strings.TrimSpace(emphasis.Replace(line))

		if line == "" {
			if len(out) > 0 {
				blank = true
			}
			continue
		}
		if sectionLabel.MatchString(line) || titleLine.MatchString(line) {
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// WordCount returns the number of whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
