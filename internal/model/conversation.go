package model

import "time"

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	ID      string     `json:"id"`
	Role    Role       `json:"role"`
	Text    string     `json:"text"`
	Sources []Citation `json:"sources,omitempty"`
	At      time.Time  `json:"at"`
}

// Citation records where part of an answer came from.
type Citation struct {
	Origin Origin `json:"origin"`
	Title  string `json:"title,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Status is the outcome of an agent turn as seen by the caller.
type Status string

const (
	StatusContinue      Status = "True"
	StatusClarify       Status = "False"
	StatusRouteClinical Status = "route_clinical"
	StatusEnded         Status = "conversation_ended"
)

// AgentKind names one of the two responders.
type AgentKind string

const (
	AgentReceptionist AgentKind = "receptionist"
	AgentClinical     AgentKind = "clinical"
)

// ValidAgents are the agent names accepted from callers.
var ValidAgents = map[AgentKind]bool{
	AgentReceptionist: true,
	AgentClinical:     true,
}

// Stage is the receptionist state machine position.
type Stage string

const (
	StageAskName       Stage = "ask_name"
	StageFollowUp      Stage = "follow_up"
	StageRouteClinical Stage = "route_clinical"
)

// Phase tracks conversational progress after the patient is identified.
type Phase string

const (
	PhaseInitial      Phase = "initial"
	PhasePostGreeting Phase = "post_greeting"
	PhaseOngoing      Phase = "ongoing"
)
