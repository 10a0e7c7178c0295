// ABOUTME: Word wrapping against a measured width.
// ABOUTME: Words wider than a full line are hard-broken by rune.

package layout

import "strings"

// Wrap breaks text into lines no wider than width. Explicit newlines start
// new lines and blank lines are kept. A word only splits when it alone is
// wider than width.
func Wrap(text string, width float64, f Font, m Measurer) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		cur := ""
		for _, w := range words {
			candidate := w
			if cur != "" {
				candidate = cur + " " + w
			}
			if m.Width(candidate, f) <= width {
				cur = candidate
				continue
			}
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			if m.Width(w, f) <= width {
				cur = w
				continue
			}
			pieces := breakWord(w, width, f, m)
			lines = append(lines, pieces[:len(pieces)-1]...)
			cur = pieces[len(pieces)-1]
		}
		lines = append(lines, cur)
	}
	return lines
}

// breakWord splits w into the fewest pieces that fit width. Each piece has at
// least one rune.
func breakWord(w string, width float64, f Font, m Measurer) []string {
	runes := []rune(w)
	var out []string
	start := 0
	for start < len(runes) {
		end := start + 1
		for end < len(runes) && m.Width(string(runes[start:end+1]), f) <= width {
			end++
		}
		out = append(out, string(runes[start:end]))
		start = end
	}
	return out
}

// Truncate shortens text with an ellipsis so it fits width.
func Truncate(text string, width float64, f Font, m Measurer) string {
	if m.Width(text, f) <= width {
		return text
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		s := string(runes[:n]) + "…"
		if m.Width(s, f) <= width {
			return s
		}
	}
	return ""
}
