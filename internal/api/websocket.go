package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsMessage struct {
	UserInput     any                  `json:"user_input"`
	Agent         model.AgentKind      `json:"agent,omitempty"`
	PatientReport *model.PatientRecord `json:"patient_report,omitempty"`
}

// handleWebSocket runs turns for one session over a connection. Messages
// are handled one at a time in arrival order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(64 * 1024)
	s.logger.Info("websocket connected", "session", sessionID)

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "session", sessionID, "err", err)
			}
			return
		}

		input := chatRequest{UserInput: msg.UserInput}.text()
		if err := validateChat(input, sessionID); err != nil {
			if conn.WriteJSON(errorBody{Error: "Invalid request", Detail: err.Error()}) != nil {
				return
			}
			continue
		}

		reply, err := s.orch.Handle(r.Context(), orchestrator.Request{
			SessionID:     sessionID,
			Input:         input,
			Agent:         msg.Agent,
			PatientReport: msg.PatientReport,
		})
		var out any = reply
		if err != nil {
			s.logger.Warn("websocket turn rejected", "session", sessionID, "err", err)
			out = errorBody{Error: err.Error()}
		}
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Warn("websocket write failed", "session", sessionID, "err", err)
			return
		}
	}
}
