// Package patient looks up discharge records by patient name.
package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/rcliao/discharge-care/internal/model"
)

// ErrLookup wraps backend failures.
var ErrLookup = errors.New("patient lookup failed")

// Status is the outcome of a lookup.
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
	StatusMultiple Status = "multiple_found"
	StatusError    Status = "error"
)

// Candidate identifies one of several matching patients without carrying
// their clinical details.
type Candidate struct {
	Name      string `json:"name"`
	PatientID string `json:"patient_id,omitempty"`
}

// Match is a lookup result. Record is set only when Status is found;
// Candidates lists the matching patients when Status is multiple_found.
type Match struct {
	Status     Status               `json:"status"`
	Record     *model.PatientRecord `json:"record,omitempty"`
	Candidates []Candidate          `json:"candidates,omitempty"`
}

// Lookup is the patient directory.
type Lookup interface {
	Lookup(ctx context.Context, name string) (Match, error)
	All(ctx context.Context) ([]model.PatientRecord, error)
}

// Resolve applies the matching policy: case-insensitive exact matches win,
// otherwise substring matches are used. More than one match is ambiguous.
func Resolve(records []model.PatientRecord, name string) Match {
	q := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if q == "" {
		return Match{Status: StatusNotFound}
	}

	var exact, partial []int
	for i, r := range records {
		n := strings.ToLower(strings.Join(strings.Fields(r.Name), " "))
		switch {
		case n == q:
			exact = append(exact, i)
		case strings.Contains(n, q):
			partial = append(partial, i)
		}
	}

	hits := exact
	if len(hits) == 0 {
		hits = partial
	}
	switch len(hits) {
	case 0:
		return Match{Status: StatusNotFound}
	case 1:
		return Match{Status: StatusFound, Record: records[hits[0]].Clone()}
	}
	m := Match{Status: StatusMultiple}
	for _, i := range hits {
		m.Candidates = append(m.Candidates, Candidate{Name: records[i].Name, PatientID: records[i].PatientID})
	}
	return m
}
