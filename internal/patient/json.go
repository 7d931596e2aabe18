package patient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/rcliao/discharge-care/internal/model"
)

//go:embed schema.json
var recordSchema []byte

// Validator checks raw discharge records against the record schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the embedded record schema.
func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate reports every schema violation in raw.
func (v *Validator) Validate(raw []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate record: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("invalid record: %s", strings.Join(problems, "; "))
	}
	return nil
}

// JSONDirectory serves records loaded once from a JSON array file. It is
// immutable after construction and safe for concurrent use.
type JSONDirectory struct {
	path    string
	records []model.PatientRecord
}

// LoadJSON reads path, keeping records that pass the schema. Invalid
// records are logged and skipped.
func LoadJSON(path string, logger *log.Logger) (*JSONDirectory, error) {
	if logger == nil {
		logger = log.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patients: %w", err)
	}
	records, err := ParseRecords(data, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("patients loaded", "path", path, "records", len(records))
	return &JSONDirectory{path: path, records: records}, nil
}

// ParseRecords decodes a JSON array of records, validating each one.
func ParseRecords(data []byte, logger *log.Logger) ([]model.PatientRecord, error) {
	if logger == nil {
		logger = log.Default()
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse patients: %w", err)
	}
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}

	records := make([]model.PatientRecord, 0, len(raw))
	for i, r := range raw {
		if err := v.Validate(r); err != nil {
			logger.Warn("skipping patient record", "index", i, "err", err)
			continue
		}
		var rec model.PatientRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			logger.Warn("skipping patient record", "index", i, "err", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// NewJSONDirectory serves records already in memory.
func NewJSONDirectory(records []model.PatientRecord) *JSONDirectory {
	cp := make([]model.PatientRecord, len(records))
	for i := range records {
		cp[i] = *records[i].Clone()
	}
	return &JSONDirectory{records: cp}
}

func (d *JSONDirectory) Lookup(_ context.Context, name string) (Match, error) {
	return Resolve(d.records, name), nil
}

func (d *JSONDirectory) All(context.Context) ([]model.PatientRecord, error) {
	out := make([]model.PatientRecord, len(d.records))
	for i := range d.records {
		out[i] = *d.records[i].Clone()
	}
	return out, nil
}
