package patient

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/discharge-care/internal/model"
)

var records = []model.PatientRecord{
	{PatientID: "p1", Name: "John Smith", PrimaryDiagnosis: "CKD Stage 3", DischargeDate: "2024-01-15", Medications: []string{"Lisinopril"}},
	{PatientID: "p2", Name: "Jane Smith", PrimaryDiagnosis: "AKI", DischargeDate: "2024-02-01"},
	{PatientID: "p3", Name: "Maria Garcia", PrimaryDiagnosis: "CKD Stage 4", DischargeDate: "2024-03-10"},
	{PatientID: "p4", Name: "Ann Lee", PrimaryDiagnosis: "Nephrotic syndrome", DischargeDate: "2024-03-11"},
	{PatientID: "p5", Name: "Ann Leeds", PrimaryDiagnosis: "Hypertension", DischargeDate: "2024-03-12"},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status Status
		want   string
		count  int
	}{
		{"exact", "John Smith", StatusFound, "John Smith", 0},
		{"case and spacing", "  john   SMITH ", StatusFound, "John Smith", 0},
		{"unique substring", "garcia", StatusFound, "Maria Garcia", 0},
		{"ambiguous substring", "smith", StatusMultiple, "", 2},
		{"exact beats substring", "ann lee", StatusFound, "Ann Lee", 0},
		{"unknown", "Zzyzx Nobody", StatusNotFound, "", 0},
		{"empty", "   ", StatusNotFound, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Resolve(records, tt.query)
			assert.Equal(t, tt.status, m.Status)
			if tt.want != "" {
				require.NotNil(t, m.Record)
				assert.Equal(t, tt.want, m.Record.Name)
			} else {
				assert.Nil(t, m.Record)
			}
			assert.Len(t, m.Candidates, tt.count)
		})
	}
}

func TestResolve_CandidatesCarryIDs(t *testing.T) {
	m := Resolve(records, "smith")
	require.Equal(t, StatusMultiple, m.Status)
	assert.Equal(t, []Candidate{
		{Name: "John Smith", PatientID: "p1"},
		{Name: "Jane Smith", PatientID: "p2"},
	}, m.Candidates)
	assert.Nil(t, m.Record)
}

func TestResolve_ReturnsCopy(t *testing.T) {
	m := Resolve(records, "John Smith")
	m.Record.Medications[0] = "changed"
	assert.Equal(t, "Lisinopril", records[0].Medications[0])
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.json")
	data := `[
		{"patient_name": "John Smith", "primary_diagnosis": "CKD Stage 3", "discharge_date": "2024-01-15",
		 "medications": ["Lisinopril 10mg", "Furosemide 20mg"], "warning_signs": "Swelling"},
		{"patient_name": "", "primary_diagnosis": "x", "discharge_date": "y"},
		{"patient_name": "No Diagnosis", "discharge_date": "2024-01-01"},
		{"patient_name": "Bad Meds", "primary_diagnosis": "x", "discharge_date": "y", "medications": "one"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	d, err := LoadJSON(path, log.New(io.Discard))
	require.NoError(t, err)

	all, err := d.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "records failing the schema are skipped")
	assert.Equal(t, []string{"Lisinopril 10mg", "Furosemide 20mg"}, all[0].Medications)

	m, err := d.Lookup(context.Background(), "john smith")
	require.NoError(t, err)
	assert.Equal(t, StatusFound, m.Status)
	assert.Equal(t, "CKD Stage 3", m.Record.PrimaryDiagnosis)
}

func TestLoadJSON_Errors(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"), log.New(io.Discard))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"patient_name": "not an array"}`), 0o644))
	_, err = LoadJSON(path, log.New(io.Discard))
	assert.Error(t, err)
}

func TestValidator(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.NoError(t, v.Validate([]byte(`{"patient_name":"A","primary_diagnosis":"B","discharge_date":"C"}`)))
	assert.ErrorContains(t, v.Validate([]byte(`{"patient_name":"A"}`)), "primary_diagnosis")
}

// TestPostgresDirectory runs against a live database when
// DISCHARGE_CARE_TEST_DSN is set.
func TestPostgresDirectory(t *testing.T) {
	dsn := os.Getenv("DISCHARGE_CARE_TEST_DSN")
	if dsn == "" {
		t.Skip("DISCHARGE_CARE_TEST_DSN not set")
	}
	ctx := context.Background()
	d, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer d.Close()

	_, err = d.db.ExecContext(ctx, `DELETE FROM patients`)
	require.NoError(t, err)
	require.NoError(t, d.Upsert(ctx, records))

	m, err := d.Lookup(ctx, "john smith")
	require.NoError(t, err)
	assert.Equal(t, StatusFound, m.Status)
	assert.Equal(t, []string{"Lisinopril"}, m.Record.Medications)

	m, err = d.Lookup(ctx, "Smith")
	require.NoError(t, err)
	assert.Equal(t, StatusMultiple, m.Status)

	all, err := d.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(records))
}
