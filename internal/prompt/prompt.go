package prompt

import "strings"

// CaptionLength is the number of runes of a prompt drawn under a collage.
const CaptionLength = 100

// Normalize turns a prompt into its result directory name. Only case and
// spaces are touched; every other character is passed through.
func Normalize(prompt string) string {
	return strings.ReplaceAll(strings.ToLower(prompt), " ", "_")
}

func Caption(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= CaptionLength {
		return prompt
	}
	return string(runes[:CaptionLength])
}
