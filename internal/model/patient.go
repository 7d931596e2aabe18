// Package model defines the core conversation and retrieval data types.
package model

import "strings"

// PatientRecord is an immutable snapshot of a discharge report.
type PatientRecord struct {
	PatientID             string   `json:"patient_id,omitempty"`
	Name                  string   `json:"patient_name"`
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	DischargeDate         string   `json:"discharge_date"`
	Medications           []string `json:"medications"`
	DietaryRestrictions   string   `json:"dietary_restrictions,omitempty"`
	FollowUp              string   `json:"follow_up,omitempty"`
	WarningSigns          string   `json:"warning_signs,omitempty"`
	DischargeInstructions string   `json:"discharge_instructions,omitempty"`
}

// Clone returns a deep copy so a handoff never shares the medications slice.
func (p *PatientRecord) Clone() *PatientRecord {
	if p == nil {
		return nil
	}
	c := *p
	c.Medications = append([]string(nil), p.Medications...)
	return &c
}

// MedicationList renders medications as a readable comma separated list.
func (p *PatientRecord) MedicationList() string {
	if p == nil || len(p.Medications) == 0 {
		return "none listed"
	}
	return strings.Join(p.Medications, ", ")
}

// Field returns v, or "N/A" when v is blank.
func Field(v string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	return v
}
