package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cohesivestack/valgo"
	"github.com/go-chi/chi/v5"

	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/orchestrator"
	"github.com/rcliao/discharge-care/internal/patient"
)

// maxInput bounds a single user message.
const maxInput = 4000

type chatRequest struct {
	UserInput     any                  `json:"user_input"`
	SessionID     string               `json:"session_id"`
	PatientReport *model.PatientRecord `json:"patient_report"`
}

// text coerces a non-string user_input to its JSON text.
func (c chatRequest) text() string {
	switch v := c.UserInput.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func validateChat(input, sessionID string) error {
	v := valgo.Is(valgo.String(input, "user_input").Not().Blank().OfLengthBetween(1, maxInput)).
		Is(valgo.String(sessionID, "session_id").OfLengthBetween(0, 128))
	if !v.Valid() {
		return v.Error()
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the Post-Discharge Medical AI Assistant API v" + Version,
		"features": []string{
			"Context-aware conversations",
			"Session-based agent management",
			"Source referencing in clinical responses",
			"Automatic handoff between reception and clinical agents",
		},
		"endpoints": map[string]string{
			"chat":           "/chat",
			"receptionist":   "/chat/receptionist",
			"clinical":       "/chat/clinical",
			"patient_lookup": "/patients/{name}",
			"sessions":       "/sessions",
			"websocket":      "/ws",
			"health_check":   "/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":          "healthy",
		"active_sessions": s.orch.Sessions().Len(),
	}
	if all, err := s.patients.All(r.Context()); err != nil {
		s.logger.Warn("health: patient directory unavailable", "err", err)
		body["status"] = "degraded"
		body["patients_loaded"] = 0
	} else {
		body["patients_loaded"] = len(all)
	}
	if s.index != nil {
		body["index_passages"] = s.index.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePatient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := s.patients.Lookup(r.Context(), name)
	if err != nil {
		s.logger.Error("patient lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	switch m.Status {
	case patient.StatusFound:
		writeJSON(w, http.StatusOK, map[string]any{"status": m.Status, "patient": m.Record})
	case patient.StatusMultiple:
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":   m.Status,
			"message":  fmt.Sprintf("Found %d patients with that name", len(m.Candidates)),
			"patients": m.Candidates,
		})
	default:
		writeError(w, http.StatusNotFound, "Patient not found", "")
	}
}

func (s *Server) handleChat(kind model.AgentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		input := req.text()
		if err := validateChat(input, req.SessionID); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}

		reply, err := s.orch.Handle(r.Context(), orchestrator.Request{
			SessionID:     req.SessionID,
			Input:         input,
			Agent:         kind,
			PatientReport: req.PatientReport,
		})
		if err != nil {
			s.writeHandleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func (s *Server) writeHandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrMissingPatient):
		writeError(w, http.StatusBadRequest, "Patient report is required for clinical consultation", "")
	case errors.Is(err, orchestrator.ErrUnknownAgent):
		writeError(w, http.StatusBadRequest, "Unknown agent", err.Error())
	default:
		s.logger.Error("chat failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.orch.Sessions().List()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(list), "sessions": list})
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	n := s.orch.Sessions().Clear()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.orch.Sessions().Delete(id) {
		writeError(w, http.StatusNotFound, "Session not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Session %s cleared successfully", id)})
}
