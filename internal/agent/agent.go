// Package agent implements the receptionist and clinical responders and the
// keyword classifiers that drive them.
package agent

import (
	"context"

	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/retriever"
)

// Reply is one agent turn.
type Reply struct {
	Text    string           `json:"response"`
	Status  model.Status     `json:"status"`
	Sources []model.Citation `json:"sources,omitempty"`
	Method  model.Method     `json:"method,omitempty"`
}

// Retriever finds grounding passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) retriever.Result
}
