package agent

import (
	"fmt"

	"github.com/rcliao/discharge-care/internal/model"
)

const (
	// Opening is the receptionist's first line in a new conversation.
	Opening = "Hello! I'm Maria, your post-discharge care coordinator. I'm here to help you with any questions about your recovery. What's your name?"

	msgAskName        = "Could you please tell me your full name so I can find your discharge information?"
	msgNotFound       = "I'm sorry, I couldn't find your record in our system. Could you please double-check the spelling of your name?"
	msgMultiple       = "I found multiple patients with that name. Could you please provide your full name or date of birth to help me locate the correct record?"
	msgLookupFailed   = "I'm having trouble accessing our patient records right now. Could you please try again in a moment?"
	msgHandoff        = "I understand you have some medical concerns. Let me connect you with our Clinical AI Agent who can better assist you with those symptoms."
	msgMissingRecord  = "I'm having trouble accessing your medical records. Could you please confirm your name again?"
	msgReceptionError = "I'm sorry, I'm having a little trouble responding right now. Could you please try again?"
	msgClinicalError  = "I apologize, but I'm having trouble accessing medical information right now. For urgent medical concerns, please contact your healthcare provider directly."
	msgEmpty          = "I didn't catch that. Could you please say it again?"
	msgNoQuestions    = "You haven't asked me anything yet in this conversation."

	// Closing ends a conversation.
	Closing = "Thank you for reaching out. Take care, and don't hesitate to contact us if you need anything else. Goodbye!"

	// ReturnToReception greets a patient sent back from the clinical agent.
	ReturnToReception = "Hi again! How can I help you with the administrative side of your care?"
)

func greeting(r *model.PatientRecord) string {
	return fmt.Sprintf("Hi %s! I have your discharge information from %s for %s. How are you feeling today?",
		r.Name, r.DischargeDate, r.PrimaryDiagnosis)
}

// ClinicalWelcome introduces the clinical agent after a handoff.
func ClinicalWelcome(r *model.PatientRecord) string {
	name := "there"
	if r != nil && r.Name != "" {
		name = r.Name
	}
	return fmt.Sprintf("Hi %s! I'm Dr. Sarah, a nephrology specialist. I understand you have some medical concerns. I'm here to help - what's troubling you?", name)
}
