// Package extract pulls verification codes and verification links out
// of message text with ordered regular expressions.
package extract

import "regexp"

// codePatterns are tried in order; the first one that matches wins.
// The bare six-digit pattern is permissive and will also match phone
// numbers or dates embedded in the text.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)code[:：\s]+([A-Z0-9]{4,8})`),
	regexp.MustCompile(`(?i)verification[:：\s]+([A-Z0-9]{4,8})`),
	regexp.MustCompile(`(?i)([0-9]{4,8})\s+is\s+your\s+code`),
	regexp.MustCompile(`\b([0-9]{6})\b`),
}

var linkPattern = regexp.MustCompile(
	`https?://[^\s<>"]+(?:verify|confirm|activate|validation)[^\s<>"]*`,
)

// Code returns the first verification code found in text, or "" if no
// pattern matches.
func Code(text string) string {
	for _, p := range codePatterns {
		m := p.FindStringSubmatch(text)
		if len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

// Link returns the first http(s) URL in text that contains one of
// "verify", "confirm", "activate" or "validation", or "" if none does.
func Link(text string) string {
	return linkPattern.FindString(text)
}
