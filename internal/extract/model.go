package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rcliao/discharge-care/internal/llm"
)

const extractionPrompt = `You extract the patient's own name from a message sent to a hospital receptionist.
Reply with a single JSON object and nothing else:
{"name": "<full name as written, or empty>", "confidence": "high" | "medium" | "low" | "none"}
Use "none" with an empty name when the message does not contain the sender's name.`

const candidateSchema = `{
  "type": "object",
  "required": ["name", "confidence"],
  "properties": {
    "name": {"type": "string", "maxLength": 100},
    "confidence": {"type": "string", "enum": ["high", "medium", "low", "none", "High", "Medium", "Low", "None"]}
  }
}`

// Model asks a language model for a structured candidate.
type Model struct {
	completer llm.Completer
	schema    *gojsonschema.Schema
}

// NewModel compiles the reply schema.
func NewModel(c llm.Completer) (*Model, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(candidateSchema))
	if err != nil {
		return nil, fmt.Errorf("compile candidate schema: %w", err)
	}
	return &Model{completer: c, schema: schema}, nil
}

func (m *Model) Extract(ctx context.Context, text string) (Candidate, error) {
	out, err := m.completer.Complete(ctx, []llm.Message{llm.System(extractionPrompt), llm.User(text)})
	if err != nil {
		return Candidate{}, fmt.Errorf("extract name: %w", err)
	}
	return m.parse(out)
}

func (m *Model) parse(out string) (Candidate, error) {
	raw := jsonObject(out)
	if raw == "" {
		return Candidate{}, fmt.Errorf("extract name: no JSON object in reply")
	}
	result, err := m.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return Candidate{}, fmt.Errorf("extract name: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return Candidate{}, fmt.Errorf("extract name: invalid reply: %s", strings.Join(problems, "; "))
	}

	var reply struct {
		Name       string `json:"name"`
		Confidence string `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Candidate{}, fmt.Errorf("extract name: %w", err)
	}
	conf, err := ParseConfidence(reply.Confidence)
	if err != nil {
		return Candidate{}, fmt.Errorf("extract name: %w", err)
	}
	name := strings.Join(strings.Fields(reply.Name), " ")
	if name == "" {
		return Candidate{}, nil
	}
	return Candidate{Name: name, Confidence: conf}, nil
}

// jsonObject returns the outermost {...} span, tolerating code fences and
// surrounding prose.
func jsonObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
