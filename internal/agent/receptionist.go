package agent

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rcliao/discharge-care/internal/composer"
	"github.com/rcliao/discharge-care/internal/extract"
	"github.com/rcliao/discharge-care/internal/memory"
	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/patient"
)

// ReceptionistDeps are the receptionist's collaborators.
type ReceptionistDeps struct {
	Lookup     patient.Lookup
	Extractor  extract.Extractor
	Composer   *composer.Composer
	Classifier *Classifier
	Turns      int
	Logger     *log.Logger
}

// Receptionist identifies the patient and triages what they need. It is not
// safe for concurrent use; the owning session serializes turns.
type Receptionist struct {
	lookup     patient.Lookup
	extractor  extract.Extractor
	composer   *composer.Composer
	classifier *Classifier
	history    *memory.History
	logger     *log.Logger

	stage  model.Stage
	phase  model.Phase
	record *model.PatientRecord
}

// NewReceptionist creates a receptionist waiting for a name.
func NewReceptionist(d ReceptionistDeps) *Receptionist {
	r := &Receptionist{
		lookup:     d.Lookup,
		extractor:  d.Extractor,
		composer:   d.Composer,
		classifier: d.Classifier,
		history:    memory.New(d.Turns),
		logger:     d.Logger,
	}
	if r.extractor == nil {
		r.extractor = extract.Pattern{}
	}
	if r.classifier == nil {
		r.classifier = NewClassifier(nil)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	r.Reset()
	return r
}

// Reset forgets the patient and the conversation.
func (r *Receptionist) Reset() {
	r.stage = model.StageAskName
	r.phase = model.PhaseInitial
	r.record = nil
	r.history.Reset()
}

// Resume picks the conversation back up after the clinical agent hands the
// patient back.
func (r *Receptionist) Resume() {
	if r.record == nil {
		r.stage = model.StageAskName
		return
	}
	r.stage = model.StageFollowUp
	r.phase = model.PhaseOngoing
}

func (r *Receptionist) Stage() model.Stage { return r.stage }
func (r *Receptionist) Phase() model.Phase { return r.phase }

// Patient returns a copy of the identified record, or nil.
func (r *Receptionist) Patient() *model.PatientRecord { return r.record.Clone() }

// History returns the conversation window, oldest first.
func (r *Receptionist) History() []model.Turn { return r.history.Turns() }

// Respond advances the state machine by one utterance.
func (r *Receptionist) Respond(ctx context.Context, input string) Reply {
	input = strings.TrimSpace(input)
	if input == "" {
		return Reply{Text: msgEmpty, Status: model.StatusClarify}
	}
	r.logger.Debug("receptionist turn", "stage", r.stage, "phase", r.phase)

	if r.classifier.IsConversationEnd(input) {
		r.logger.Info("conversation ended", "stage", r.stage)
		r.Reset()
		return Reply{Text: Closing, Status: model.StatusEnded}
	}
	if r.stage != model.StageAskName && r.classifier.IsGreetingWithName(input) && !r.classifier.HasMedicalConcern(input) {
		if reply, ok := r.reintroduce(ctx, input); ok {
			r.history.Exchange(input, reply.Text)
			return reply
		}
	}

	var reply Reply
	switch r.stage {
	case model.StageAskName:
		reply = r.askName(ctx, input)
	case model.StageFollowUp:
		reply = r.followUp(ctx, input)
	default:
		reply = Reply{Text: msgHandoff, Status: model.StatusRouteClinical}
	}
	r.history.Exchange(input, reply.Text)
	return reply
}

func (r *Receptionist) askName(ctx context.Context, input string) Reply {
	cand, err := r.extractor.Extract(ctx, input)
	if err != nil {
		r.logger.Warn("name extraction failed", "err", err)
	}
	if !cand.Found() {
		return Reply{Text: msgAskName, Status: model.StatusClarify}
	}

	match, err := r.lookup.Lookup(ctx, cand.Name)
	if err != nil {
		r.logger.Error("patient lookup failed", "name", cand.Name, "err", err)
		return Reply{Text: msgLookupFailed, Status: model.StatusClarify}
	}
	switch match.Status {
	case patient.StatusFound:
		r.logger.Info("patient identified", "name", match.Record.Name, "confidence", cand.Confidence)
		return r.identify(match.Record)
	case patient.StatusMultiple:
		r.logger.Warn("multiple patients match", "name", cand.Name, "candidates", len(match.Candidates))
		return Reply{Text: msgMultiple, Status: model.StatusClarify}
	default:
		r.logger.Warn("patient not found", "name", cand.Name)
		return Reply{Text: msgNotFound, Status: model.StatusClarify}
	}
}

// reintroduce starts over only when a greeting names a different patient
// who resolves to a record. Anything else stays with the current patient.
func (r *Receptionist) reintroduce(ctx context.Context, input string) (Reply, bool) {
	cand, err := r.extractor.Extract(ctx, input)
	if err != nil || !cand.Found() {
		return Reply{}, false
	}
	match, err := r.lookup.Lookup(ctx, cand.Name)
	if err != nil || match.Status != patient.StatusFound {
		return Reply{}, false
	}
	if r.record != nil && samePatient(r.record, match.Record) {
		return Reply{}, false
	}
	r.logger.Info("new introduction, starting over", "stage", r.stage, "name", match.Record.Name)
	r.Reset()
	return r.identify(match.Record), true
}

func (r *Receptionist) identify(record *model.PatientRecord) Reply {
	r.record = record.Clone()
	r.stage = model.StageFollowUp
	r.phase = model.PhasePostGreeting
	return Reply{Text: greeting(r.record), Status: model.StatusContinue}
}

func samePatient(a, b *model.PatientRecord) bool {
	if a.PatientID != "" || b.PatientID != "" {
		return a.PatientID == b.PatientID
	}
	return strings.EqualFold(a.Name, b.Name)
}

func (r *Receptionist) followUp(ctx context.Context, input string) Reply {
	if r.record == nil {
		r.stage = model.StageAskName
		return Reply{Text: msgMissingRecord, Status: model.StatusClarify}
	}

	a := r.classifier.Analyze(input)
	if a.MedicalConcern {
		r.stage = model.StageRouteClinical
		r.logger.Info("routing to clinical", "name", r.record.Name)
		return Reply{Text: msgHandoff, Status: model.StatusRouteClinical}
	}
	if r.composer == nil {
		return Reply{Text: msgReceptionError, Status: model.StatusClarify}
	}

	text, err := r.composer.Compose(ctx, composer.Request{
		Query:    input,
		Patient:  r.record,
		History:  r.history.Turns(),
		Guidance: Guidance(r.phase, a),
		NoFooter: true,
	})
	if err != nil {
		r.logger.Error("receptionist reply failed", "err", err)
		return Reply{Text: msgReceptionError, Status: model.StatusClarify}
	}
	if r.phase == model.PhasePostGreeting {
		r.phase = model.PhaseOngoing
	}
	return Reply{Text: text, Status: model.StatusContinue}
}
