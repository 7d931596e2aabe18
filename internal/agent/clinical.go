package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rcliao/discharge-care/internal/composer"
	"github.com/rcliao/discharge-care/internal/memory"
	"github.com/rcliao/discharge-care/internal/model"
)

// ErrNoPatient rejects a clinical agent without a patient record.
var ErrNoPatient = errors.New("clinical agent requires a patient record")

// ClinicalDeps are the clinical agent's collaborators.
type ClinicalDeps struct {
	Retriever  Retriever
	Composer   *composer.Composer
	Classifier *Classifier
	Turns      int
	Logger     *log.Logger
}

// Clinical answers medical questions for one identified patient.
type Clinical struct {
	record     *model.PatientRecord
	retriever  Retriever
	composer   *composer.Composer
	classifier *Classifier
	history    *memory.History
	logger     *log.Logger
}

// NewClinical returns ErrNoPatient when record is nil.
func NewClinical(record *model.PatientRecord, d ClinicalDeps) (*Clinical, error) {
	if record == nil {
		return nil, ErrNoPatient
	}
	if d.Composer == nil {
		return nil, fmt.Errorf("clinical agent requires a composer")
	}
	c := &Clinical{
		record:     record.Clone(),
		retriever:  d.Retriever,
		composer:   d.Composer,
		classifier: d.Classifier,
		history:    memory.New(d.Turns),
		logger:     d.Logger,
	}
	if c.classifier == nil {
		c.classifier = NewClassifier(nil)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c, nil
}

// Patient returns a copy of the record the agent serves.
func (c *Clinical) Patient() *model.PatientRecord { return c.record.Clone() }

// History returns the conversation window, oldest first.
func (c *Clinical) History() []model.Turn { return c.history.Turns() }

// SetPatient replaces the record. A different patient starts a fresh history.
func (c *Clinical) SetPatient(record *model.PatientRecord) error {
	if record == nil {
		return ErrNoPatient
	}
	if !strings.EqualFold(record.Name, c.record.Name) || record.PatientID != c.record.PatientID {
		c.history.Reset()
	}
	c.record = record.Clone()
	return nil
}

// Respond answers one question. Questions about the conversation itself are
// answered from memory without retrieval or the model.
func (c *Clinical) Respond(ctx context.Context, input string) Reply {
	input = strings.TrimSpace(input)
	if input == "" {
		return Reply{Text: msgEmpty, Status: model.StatusClarify}
	}
	if c.classifier.IsMetaQuestion(input) {
		return Reply{Text: c.recall(input), Status: model.StatusContinue, Method: model.MethodNone}
	}

	var passages []model.Passage
	var note string
	method := model.MethodNone
	if c.retriever != nil {
		res := c.retriever.Retrieve(ctx, input)
		passages, method, note = res.Passages, res.Method, res.Note
	}

	text, err := c.composer.Compose(ctx, composer.Request{
		Query:    input,
		Patient:  c.record,
		Passages: passages,
		Method:   method,
		Note:     note,
		History:  c.history.Turns(),
	})
	if err != nil {
		c.logger.Error("clinical reply failed", "err", err)
		return Reply{Text: msgClinicalError, Status: model.StatusClarify, Method: method}
	}

	sources := composer.Citations(c.composer.Used(passages))
	c.history.Exchange(input, text, sources...)
	c.logger.Info("clinical reply", "method", method, "sources", len(sources))
	return Reply{Text: text, Status: model.StatusContinue, Sources: sources, Method: method}
}

func (c *Clinical) recall(input string) string {
	questions := c.history.UserTexts()
	if len(questions) == 0 {
		return msgNoQuestions
	}
	norm := strings.ToLower(input)
	if strings.Contains(norm, "discuss") || strings.Contains(norm, "talk") || strings.Contains(norm, "summar") {
		var b strings.Builder
		b.WriteString("So far you've asked me about:")
		for _, q := range questions {
			b.WriteString("\n- " + q)
		}
		return b.String()
	}
	last, _ := c.history.LastUserText()
	return fmt.Sprintf("You just asked: \"%s\"", last)
}
