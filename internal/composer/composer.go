// Package composer turns a question, a patient record, retrieved passages
// and recent history into one grounded, cited reply.
package composer

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rcliao/discharge-care/internal/llm"
	"github.com/rcliao/discharge-care/internal/model"
)

const (
	// DefaultExchanges is how many recent user/assistant exchanges reach the prompt.
	DefaultExchanges = 5
	// DefaultBudget is the character budget for retrieved passages.
	DefaultBudget = 6000
)

// Request is everything a single reply depends on.
type Request struct {
	Query    string
	Patient  *model.PatientRecord
	Passages []model.Passage
	Method   model.Method
	// Note is a retrieval caveat shown to the model after the context.
	Note    string
	History []model.Turn
	// Guidance is a same-turn hint about the conversational stage.
	Guidance string
	// NoFooter suppresses the citation footer for conversational replies.
	NoFooter bool
}

// Composer is safe for concurrent use when its Completer is.
type Composer struct {
	completer llm.Completer
	persona   Persona
	exchanges int
	budget    int
	logger    *log.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithPersona replaces the default clinical persona.
func WithPersona(p Persona) Option { return func(c *Composer) { c.persona = p } }

// WithExchanges bounds the history placed in the prompt.
func WithExchanges(n int) Option { return func(c *Composer) { c.exchanges = n } }

// WithBudget sets the passage character budget.
func WithBudget(chars int) Option { return func(c *Composer) { c.budget = chars } }

func WithLogger(l *log.Logger) Option { return func(c *Composer) { c.logger = l } }

// New creates a composer around completer.
func New(completer llm.Completer, opts ...Option) *Composer {
	c := &Composer{
		completer: completer,
		persona:   Clinical,
		exchanges: DefaultExchanges,
		budget:    DefaultBudget,
		logger:    log.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.exchanges <= 0 {
		c.exchanges = DefaultExchanges
	}
	if c.budget <= 0 {
		c.budget = DefaultBudget
	}
	return c
}

// Persona returns the persona the composer speaks as.
func (c *Composer) Persona() Persona { return c.persona }

// BuildPrompt is a pure function of the request: the same request always
// yields the same messages.
func (c *Composer) BuildPrompt(req Request) []llm.Message {
	packed := Pack(req.Passages, c.budget)

	var sys strings.Builder
	sys.WriteString(c.persona.Intro)
	if len(c.persona.Guidelines) > 0 {
		sys.WriteString("\n\nKey Guidelines:")
		for _, g := range c.persona.Guidelines {
			sys.WriteString("\n- " + g)
		}
	}
	sys.WriteString("\n\n" + patientBlock(req.Patient, c.persona.FullRecord))

	msgs := []llm.Message{llm.System(sys.String())}
	for _, t := range recent(req.History, c.exchanges) {
		if t.Role == model.RoleUser {
			msgs = append(msgs, llm.User(t.Text))
		} else {
			msgs = append(msgs, llm.Assistant(t.Text))
		}
	}

	var user strings.Builder
	if c.persona.Grounded {
		fmt.Fprintf(&user, "Available Context from %s:\n%s\n\n", req.Method.Label(), contextBlock(packed.Passages, req.Note))
		fmt.Fprintf(&user, "Patient Query: %s", strings.TrimSpace(req.Query))
		if len(c.persona.Instructions) > 0 {
			user.WriteString("\n\nInstructions:")
			for i, in := range c.persona.Instructions {
				fmt.Fprintf(&user, "\n%d. %s", i+1, in)
			}
		}
	} else {
		user.WriteString(strings.TrimSpace(req.Query))
	}
	if g := strings.TrimSpace(req.Guidance); g != "" {
		user.WriteString("\n\nContext Guidance: " + g)
	}
	msgs = append(msgs, llm.User(user.String()))
	return msgs
}

// Compose calls the model once and appends the citation footer for the
// passages that fit in the prompt.
func (c *Composer) Compose(ctx context.Context, req Request) (string, error) {
	msgs := c.BuildPrompt(req)
	out, err := c.completer.Complete(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("compose reply: %w", err)
	}
	out = strings.TrimSpace(out)
	if req.NoFooter {
		return out, nil
	}
	used := c.Used(req.Passages)
	c.logger.Debug("composed reply", "persona", c.persona.Name, "passages", len(used), "method", req.Method)
	return out + Footer(used), nil
}

// Used returns the passages that fit the prompt budget, excerpts included.
func (c *Composer) Used(passages []model.Passage) []model.Passage {
	return Pack(passages, c.budget).Passages
}

func patientBlock(p *model.PatientRecord, full bool) string {
	if p == nil {
		return "Patient Information: not yet identified."
	}
	var b strings.Builder
	b.WriteString("Patient Information:")
	fmt.Fprintf(&b, "\n- Name: %s", model.Field(p.Name))
	fmt.Fprintf(&b, "\n- Diagnosis: %s", model.Field(p.PrimaryDiagnosis))
	fmt.Fprintf(&b, "\n- Discharge Date: %s", model.Field(p.DischargeDate))
	fmt.Fprintf(&b, "\n- Current Medications: %s", p.MedicationList())
	if full {
		fmt.Fprintf(&b, "\n- Dietary Restrictions: %s", model.Field(p.DietaryRestrictions))
		fmt.Fprintf(&b, "\n- Upcoming Follow-up: %s", model.Field(p.FollowUp))
		fmt.Fprintf(&b, "\n- Warning Signs to Watch: %s", model.Field(p.WarningSigns))
		fmt.Fprintf(&b, "\n- Discharge Instructions: %s", model.Field(p.DischargeInstructions))
	}
	return b.String()
}

func contextBlock(passages []model.Passage, note string) string {
	block := "Limited information available."
	if len(passages) > 0 {
		texts := make([]string, len(passages))
		for i, p := range passages {
			texts[i] = p.Text
		}
		block = strings.Join(texts, "\n\n") + sourceSummary(passages)
	}
	if note = strings.TrimSpace(note); note != "" {
		block += "\nNote: " + note + "."
	}
	return block
}

func recent(turns []model.Turn, exchanges int) []model.Turn {
	if n := 2 * exchanges; len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}
