// Package orchestrator routes each turn of a session to the receptionist or
// the clinical agent and enforces the handoff rules between them.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/rcliao/discharge-care/internal/agent"
	"github.com/rcliao/discharge-care/internal/composer"
	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/session"
)

var (
	// ErrMissingPatient rejects a clinical turn with no patient record.
	ErrMissingPatient = fmt.Errorf("patient report is required for clinical consultation: %w", agent.ErrNoPatient)
	// ErrUnknownAgent rejects an agent name other than receptionist or clinical.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Request is one caller turn. Agent is empty for automatic routing.
type Request struct {
	SessionID     string
	Input         string
	Agent         model.AgentKind
	PatientReport *model.PatientRecord
}

// AgentInfo describes the agent that produced a reply.
type AgentInfo struct {
	Type              model.AgentKind `json:"agent_type"`
	Name              string          `json:"agent_name"`
	Stage             model.Stage     `json:"conversation_stage,omitempty"`
	PatientIdentified bool            `json:"patient_identified"`
	HistoryLength     int             `json:"conversation_history_length"`
}

// Reply is the caller-facing result of a turn.
type Reply struct {
	SessionID     string               `json:"session_id"`
	Response      string               `json:"response"`
	Status        model.Status         `json:"status"`
	Agent         model.AgentKind      `json:"agent"`
	PatientReport *model.PatientRecord `json:"patient_report,omitempty"`
	Sources       []model.Citation     `json:"sources,omitempty"`
	Method        model.Method         `json:"method,omitempty"`
	// Welcome is the clinical agent's introduction after a handoff.
	Welcome string    `json:"handoff_message,omitempty"`
	Info    AgentInfo `json:"agent_info"`
}

// Orchestrator is safe for concurrent use; turns within one session are
// serialized by the session lock.
type Orchestrator struct {
	sessions   session.Store
	clinical   agent.ClinicalDeps
	classifier *agent.Classifier
	logger     *log.Logger
}

// New creates an orchestrator over sessions. Clinical agents are built with
// clinical on handoff.
func New(sessions session.Store, clinical agent.ClinicalDeps, classifier *agent.Classifier, logger *log.Logger) *Orchestrator {
	if classifier == nil {
		classifier = agent.NewClassifier(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	if clinical.Classifier == nil {
		clinical.Classifier = classifier
	}
	return &Orchestrator{sessions: sessions, clinical: clinical, classifier: classifier, logger: logger}
}

// Sessions exposes the session store.
func (o *Orchestrator) Sessions() session.Store { return o.sessions }

// ShouldReturnToReception decides whether a clinical turn is really an
// administrative request.
func (o *Orchestrator) ShouldReturnToReception(input string) bool {
	return o.classifier.IsAdministrative(input)
}

// Handle runs one turn. It fails only for unknown agents and for clinical
// turns without a patient record; collaborator failures come back as
// apologetic replies.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Reply, error) {
	if req.Agent != "" && !model.ValidAgents[req.Agent] {
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownAgent, req.Agent)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.Agent == model.AgentClinical && req.PatientReport == nil {
		if _, ok := o.sessions.Get(req.SessionID); !ok {
			return Reply{}, ErrMissingPatient
		}
	}

	s := o.sessions.GetOrCreate(req.SessionID)
	s.Lock()
	defer s.Unlock()

	kind, err := o.route(s, req)
	if err != nil {
		return Reply{}, err
	}
	s.Turns++

	var reply Reply
	if kind == model.AgentClinical {
		reply = o.clinicalTurn(ctx, s, req)
	} else {
		reply = o.receptionTurn(ctx, s, req.Input)
	}
	reply.SessionID = s.ID
	reply.PatientReport = s.Patient()
	reply.Info = info(s, reply.Agent)
	o.logger.Info("turn handled", "session", s.ID, "agent", reply.Agent, "status", reply.Status)
	return reply, nil
}

// route picks the agent for this turn, activating the clinical agent when
// the caller forces it.
func (o *Orchestrator) route(s *session.Session, req Request) (model.AgentKind, error) {
	switch req.Agent {
	case model.AgentReceptionist:
		if s.Active == model.AgentClinical {
			s.Active = model.AgentReceptionist
			s.Receptionist.Resume()
		}
		return model.AgentReceptionist, nil
	case model.AgentClinical:
		record := req.PatientReport
		if record == nil {
			record = s.Patient()
		}
		if record == nil {
			return "", ErrMissingPatient
		}
		if err := o.activateClinical(s, record); err != nil {
			return "", err
		}
		return model.AgentClinical, nil
	}
	if s.Active == model.AgentClinical && s.Clinical != nil {
		return model.AgentClinical, nil
	}
	s.Active = model.AgentReceptionist
	return model.AgentReceptionist, nil
}

func (o *Orchestrator) activateClinical(s *session.Session, record *model.PatientRecord) error {
	if s.Clinical != nil {
		if err := s.Clinical.SetPatient(record); err != nil {
			return ErrMissingPatient
		}
	} else {
		c, err := agent.NewClinical(record, o.clinical)
		if err != nil {
			if errors.Is(err, agent.ErrNoPatient) {
				return ErrMissingPatient
			}
			return err
		}
		s.Clinical = c
	}
	s.Active = model.AgentClinical
	return nil
}

func (o *Orchestrator) receptionTurn(ctx context.Context, s *session.Session, input string) Reply {
	r := s.Receptionist.Respond(ctx, input)
	reply := Reply{Response: r.Text, Status: r.Status, Agent: model.AgentReceptionist}

	switch r.Status {
	case model.StatusRouteClinical:
		record := s.Receptionist.Patient()
		if err := o.activateClinical(s, record); err != nil {
			o.logger.Error("clinical handoff failed", "session", s.ID, "err", err)
			return reply
		}
		reply.Welcome = agent.ClinicalWelcome(record)
		o.logger.Info("handoff to clinical", "session", s.ID, "patient", record.Name)
	case model.StatusEnded:
		s.Reset()
	}
	return reply
}

func (o *Orchestrator) clinicalTurn(ctx context.Context, s *session.Session, req Request) Reply {
	if o.classifier.IsConversationEnd(req.Input) {
		s.Reset()
		return Reply{Response: agent.Closing, Status: model.StatusEnded, Agent: model.AgentClinical}
	}
	if req.Agent == "" && o.ShouldReturnToReception(req.Input) {
		s.Active = model.AgentReceptionist
		s.Receptionist.Resume()
		o.logger.Info("handoff to reception", "session", s.ID)
		return Reply{Response: agent.ReturnToReception, Status: model.StatusContinue, Agent: model.AgentReceptionist}
	}

	r := s.Clinical.Respond(ctx, strings.TrimSpace(req.Input))
	return Reply{
		Response: r.Text,
		Status:   r.Status,
		Agent:    model.AgentClinical,
		Sources:  r.Sources,
		Method:   r.Method,
	}
}

func info(s *session.Session, kind model.AgentKind) AgentInfo {
	if kind == model.AgentClinical && s.Clinical != nil {
		return AgentInfo{
			Type:              model.AgentClinical,
			Name:              composer.Clinical.Name,
			PatientIdentified: true,
			HistoryLength:     len(s.Clinical.History()),
		}
	}
	name := composer.Receptionist.Name
	if kind == model.AgentClinical {
		name = composer.Clinical.Name
	}
	return AgentInfo{
		Type:              kind,
		Name:              name,
		Stage:             s.Receptionist.Stage(),
		PatientIdentified: s.Receptionist.Patient() != nil,
		HistoryLength:     len(s.Receptionist.History()),
	}
}
