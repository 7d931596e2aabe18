package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

const maxNameWords = 4

var (
	explicitName = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name's|call me)\s+(.+)`)
	impliedName  = regexp.MustCompile(`(?i)\b(?:i am|i'm|this is)\s+(.+)`)
	greeting     = regexp.MustCompile(`(?i)^(?:(?:hi|hello|hey|good morning|good afternoon|good evening)(?:\s+there)?[\s,!.]*)+`)
	nameStop     = regexp.MustCompile(`(?i)[,.;!?]|\s(?:and|but|from|here|calling)\b`)
)

// notNames are words that follow "I am" without introducing a name.
var notNames = map[string]bool{
	"a": true, "an": true, "the": true, "not": true, "so": true, "very": true, "really": true,
	"feeling": true, "having": true, "doing": true, "good": true, "fine": true, "ok": true,
	"okay": true, "well": true, "sick": true, "in": true, "looking": true, "trying": true,
	"calling": true, "worried": true, "still": true, "just": true, "back": true, "here": true,
}

// Pattern extracts names with fixed phrases. It never fails.
type Pattern struct{}

func (Pattern) Extract(_ context.Context, text string) (Candidate, error) {
	text = strings.TrimSpace(text)
	if m := explicitName.FindStringSubmatch(text); m != nil {
		if name := cleanName(m[1]); name != "" {
			return Candidate{Name: name, Confidence: ConfidenceHigh}, nil
		}
		return Candidate{}, nil
	}
	if m := impliedName.FindStringSubmatch(text); m != nil {
		if name := cleanName(m[1]); name != "" {
			return Candidate{Name: name, Confidence: ConfidenceMedium}, nil
		}
		return Candidate{}, nil
	}

	rest := strings.TrimSpace(greeting.ReplaceAllString(text, ""))
	rest = strings.TrimRight(rest, ".!?, ")
	if name := cleanName(rest); name != "" && name == titleWords(rest) {
		return Candidate{Name: name, Confidence: ConfidenceLow}, nil
	}
	return Candidate{}, nil
}

// cleanName cuts s at the first clause boundary and title-cases it. It
// returns "" unless the result is one to four alphabetic words.
func cleanName(s string) string {
	if loc := nameStop.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > maxNameWords || notNames[strings.ToLower(words[0])] {
		return ""
	}
	for _, w := range words {
		if !isNameWord(w) {
			return ""
		}
	}
	return titleWords(strings.Join(words, " "))
}

func isNameWord(w string) bool {
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == '\'' || r == '-':
		default:
			return false
		}
	}
	return letters > 0
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
