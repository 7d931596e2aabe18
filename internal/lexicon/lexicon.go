// Package lexicon holds the term lists used to classify utterances and to
// expand retrieval queries.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Lexicon is a set of term lists. Terms are lowercase words or phrases; a
// trailing "*" allows the final word to continue (a prefix match).
type Lexicon struct {
	MedicalConcerns []string            `yaml:"medical_concerns"`
	Acknowledgments []string            `yaml:"acknowledgments"`
	Negatives       []string            `yaml:"negatives"`
	Medication      []string            `yaml:"medication"`
	Diet            []string            `yaml:"diet"`
	Appointment     []string            `yaml:"appointment"`
	Administrative  []string            `yaml:"administrative"`
	Endings         []string            `yaml:"endings"`
	Greetings       []string            `yaml:"greetings"`
	MetaQuestions   []string            `yaml:"meta_questions"`
	Synonyms        map[string][]string `yaml:"synonyms"`
}

// Default returns the built-in lexicon.
func Default() *Lexicon {
	l, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded default is invalid: %v", err))
	}
	return l
}

// Load reads a lexicon file. An empty path returns the built-in lexicon.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and normalizes every term to lowercase.
func Parse(data []byte) (*Lexicon, error) {
	var l Lexicon
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	for _, list := range []*[]string{
		&l.MedicalConcerns, &l.Acknowledgments, &l.Negatives, &l.Medication, &l.Diet,
		&l.Appointment, &l.Administrative, &l.Endings, &l.Greetings, &l.MetaQuestions,
	} {
		for i, t := range *list {
			(*list)[i] = strings.ToLower(strings.TrimSpace(t))
		}
	}
	syn := make(map[string][]string, len(l.Synonyms))
	for k, v := range l.Synonyms {
		syn[strings.ToLower(strings.TrimSpace(k))] = v
	}
	l.Synonyms = syn
	if len(l.MedicalConcerns) == 0 || len(l.Endings) == 0 {
		return nil, fmt.Errorf("parse lexicon: medical_concerns and endings must not be empty")
	}
	return &l, nil
}

// Normalize lowercases text and collapses every run of characters other than
// letters, digits and apostrophes into a single space.
func Normalize(text string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			b.WriteRune(r)
			space = false
		case r == '’':
			b.WriteRune('\'')
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Match returns the first term found in text, honoring word boundaries.
func Match(text string, terms []string) (string, bool) {
	norm := " " + Normalize(text) + " "
	for _, t := range terms {
		if containsTerm(norm, t) {
			return t, true
		}
	}
	return "", false
}

// Has reports whether any term occurs in text.
func Has(text string, terms []string) bool {
	_, ok := Match(text, terms)
	return ok
}

// IsExactly reports whether the whole utterance is one of terms.
func IsExactly(text string, terms []string) bool {
	norm := Normalize(text)
	for _, t := range terms {
		if norm == strings.TrimSuffix(t, "*") {
			return true
		}
	}
	return false
}

// containsTerm expects norm padded with single spaces on both ends.
func containsTerm(norm, term string) bool {
	prefix := strings.HasSuffix(term, "*")
	term = Normalize(strings.TrimSuffix(term, "*"))
	if term == "" {
		return false
	}
	if !prefix {
		return strings.Contains(norm, " "+term+" ")
	}
	return strings.Contains(norm, " "+term)
}

// Expand appends synonyms of terms found in query, longest terms first and
// without repeating words already present. The result is deterministic.
func (l *Lexicon) Expand(query string) string {
	norm := " " + Normalize(query) + " "
	keys := make([]string, 0, len(l.Synonyms))
	for k := range l.Synonyms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	var extra []string
	for _, k := range keys {
		if !containsTerm(norm, k) {
			continue
		}
		for _, s := range l.Synonyms[k] {
			s = strings.ToLower(s)
			if containsTerm(norm, s) {
				continue
			}
			extra = append(extra, s)
			norm += s + " "
		}
	}
	if len(extra) == 0 {
		return strings.TrimSpace(query)
	}
	return strings.TrimSpace(query) + " " + strings.Join(extra, " ")
}
