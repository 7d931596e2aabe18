package agent

import (
	"context"
	"strings"

	"github.com/rcliao/discharge-care/internal/extract"
	"github.com/rcliao/discharge-care/internal/lexicon"
	"github.com/rcliao/discharge-care/internal/model"
)

// Analysis is the keyword profile of one utterance.
type Analysis struct {
	MedicalConcern bool `json:"medical_concern"`
	Acknowledgment bool `json:"acknowledgment"`
	Negative       bool `json:"negative"`
	Question       bool `json:"question"`
	Medication     bool `json:"medication"`
	Diet           bool `json:"diet"`
	Appointment    bool `json:"appointment"`
}

// Classifier answers keyword questions about utterances. It holds no state
// beyond its lexicon and is safe for concurrent use.
type Classifier struct {
	lex *lexicon.Lexicon
}

// NewClassifier uses lex, or the built-in lexicon when lex is nil.
func NewClassifier(lex *lexicon.Lexicon) *Classifier {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Classifier{lex: lex}
}

// HasMedicalConcern reports symptom or help keywords.
func (c *Classifier) HasMedicalConcern(text string) bool {
	return lexicon.Has(text, c.lex.MedicalConcerns)
}

// IsConversationEnd reports a closing phrase such as "bye" or "that's all".
func (c *Classifier) IsConversationEnd(text string) bool {
	return lexicon.Has(text, c.lex.Endings)
}

// IsAdministrative reports a request that belongs with the receptionist.
func (c *Classifier) IsAdministrative(text string) bool {
	return lexicon.Has(text, c.lex.Administrative)
}

// IsMetaQuestion reports a question about the conversation itself.
func (c *Classifier) IsMetaQuestion(text string) bool {
	return lexicon.Has(text, c.lex.MetaQuestions)
}

// IsGreetingWithName reports an utterance that opens with a greeting and
// introduces someone by name, as a new patient would.
func (c *Classifier) IsGreetingWithName(text string) bool {
	norm := lexicon.Normalize(text)
	greets := false
	for _, g := range c.lex.Greetings {
		if norm == g || strings.HasPrefix(norm, g+" ") {
			greets = true
			break
		}
	}
	if !greets {
		return false
	}
	cand, _ := extract.Pattern{}.Extract(context.Background(), text)
	return cand.Found() && cand.Confidence >= extract.ConfidenceMedium
}

// Analyze profiles text for the receptionist's reply guidance.
func (c *Classifier) Analyze(text string) Analysis {
	return Analysis{
		MedicalConcern: c.HasMedicalConcern(text),
		Acknowledgment: lexicon.IsExactly(text, c.lex.Acknowledgments),
		Negative:       lexicon.Has(text, c.lex.Negatives),
		Question:       strings.Contains(text, "?"),
		Medication:     lexicon.Has(text, c.lex.Medication),
		Diet:           lexicon.Has(text, c.lex.Diet),
		Appointment:    lexicon.Has(text, c.lex.Appointment),
	}
}

// Guidance returns the same-turn hint for a receptionist reply, or "".
func Guidance(phase model.Phase, a Analysis) string {
	switch phase {
	case model.PhasePostGreeting:
		switch {
		case a.Acknowledgment:
			return "The patient acknowledged your greeting. Ask a follow-up question about their recovery or how they're feeling, but don't repeat the greeting or medical information already shared."
		case a.Negative:
			return "The patient indicated they're not doing well. Show empathy and ask for more details about their concerns."
		}
	case model.PhaseOngoing:
		switch {
		case a.Acknowledgment:
			return "The patient is acknowledging your previous message. Provide a natural follow-up or ask if they have any other questions/concerns."
		case a.Medication:
			return "Focus on medication-related guidance without repeating their full medical history."
		case a.Diet:
			return "Focus on dietary guidance specific to their condition."
		}
	}
	return ""
}
