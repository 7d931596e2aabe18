// Package extract finds the patient's name in a free-text message.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Confidence ranks how sure an extractor is about a candidate.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

var confidenceNames = []string{"none", "low", "medium", "high"}

func (c Confidence) String() string {
	if c < ConfidenceNone || c > ConfidenceHigh {
		return "none"
	}
	return confidenceNames[c]
}

// ParseConfidence accepts none, low, medium or high in any case.
func ParseConfidence(s string) (Confidence, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range confidenceNames {
		if s == n {
			return Confidence(i), nil
		}
	}
	return ConfidenceNone, fmt.Errorf("unknown confidence %q", s)
}

// Candidate is an extracted name. Name is empty when Confidence is none.
type Candidate struct {
	Name       string     `json:"name"`
	Confidence Confidence `json:"confidence"`
}

// Found reports whether the candidate carries a name.
func (c Candidate) Found() bool { return c.Name != "" && c.Confidence > ConfidenceNone }

// Extractor finds a name in text.
type Extractor interface {
	Extract(ctx context.Context, text string) (Candidate, error)
}

// Chain tries Primary and accepts its candidate at or above MinConfidence;
// anything else, including an error, falls through to Fallback.
type Chain struct {
	Primary       Extractor
	Fallback      Extractor
	MinConfidence Confidence
	Logger        *log.Logger
}

func (c *Chain) Extract(ctx context.Context, text string) (Candidate, error) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	if c.Primary != nil {
		cand, err := c.Primary.Extract(ctx, text)
		switch {
		case err != nil:
			logger.Warn("name extraction failed, using patterns", "err", err)
		case cand.Found() && cand.Confidence >= c.MinConfidence:
			return cand, nil
		default:
			logger.Debug("name extraction below threshold, using patterns", "confidence", cand.Confidence, "min", c.MinConfidence)
		}
	}
	if c.Fallback == nil {
		return Candidate{}, nil
	}
	return c.Fallback.Extract(ctx, text)
}
