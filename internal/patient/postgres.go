package patient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/rcliao/discharge-care/internal/model"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS patients (
	patient_id             TEXT PRIMARY KEY,
	patient_name           TEXT NOT NULL,
	primary_diagnosis      TEXT NOT NULL,
	discharge_date         TEXT NOT NULL,
	medications            TEXT[] NOT NULL DEFAULT '{}',
	dietary_restrictions   TEXT NOT NULL DEFAULT '',
	follow_up              TEXT NOT NULL DEFAULT '',
	warning_signs          TEXT NOT NULL DEFAULT '',
	discharge_instructions TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_patients_name ON patients (lower(patient_name));
`

const pgColumns = `patient_id, patient_name, primary_diagnosis, discharge_date, medications,
	dietary_restrictions, follow_up, warning_signs, discharge_instructions`

// PostgresDirectory reads records from a patients table.
type PostgresDirectory struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and creates the patients table if missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	d := &PostgresDirectory{db: db}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *PostgresDirectory) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("create patients table: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (d *PostgresDirectory) Close() error {
	return d.db.Close()
}

// Lookup narrows candidates in SQL and applies the shared matching policy.
func (d *PostgresDirectory) Lookup(ctx context.Context, name string) (Match, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return Match{Status: StatusNotFound}, nil
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+pgColumns+` FROM patients WHERE strpos(lower(patient_name), lower($1)) > 0 ORDER BY patient_id`,
		name)
	if err != nil {
		return Match{Status: StatusError}, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return Match{Status: StatusError}, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	return Resolve(records, name), nil
}

func (d *PostgresDirectory) All(ctx context.Context) ([]model.PatientRecord, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+pgColumns+` FROM patients ORDER BY patient_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	return scanRecords(rows)
}

// Upsert inserts or replaces records keyed by patient id. Records without an
// id are keyed by name.
func (d *PostgresDirectory) Upsert(ctx context.Context, records []model.PatientRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patients (`+pgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (patient_id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			primary_diagnosis = EXCLUDED.primary_diagnosis,
			discharge_date = EXCLUDED.discharge_date,
			medications = EXCLUDED.medications,
			dietary_restrictions = EXCLUDED.dietary_restrictions,
			follow_up = EXCLUDED.follow_up,
			warning_signs = EXCLUDED.warning_signs,
			discharge_instructions = EXCLUDED.discharge_instructions`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		id := r.PatientID
		if id == "" {
			id = r.Name
		}
		meds := r.Medications
		if meds == nil {
			meds = []string{}
		}
		if _, err := stmt.ExecContext(ctx, id, r.Name, r.PrimaryDiagnosis, r.DischargeDate, pq.Array(meds),
			r.DietaryRestrictions, r.FollowUp, r.WarningSigns, r.DischargeInstructions); err != nil {
			return fmt.Errorf("upsert %q: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

func scanRecords(rows *sql.Rows) ([]model.PatientRecord, error) {
	defer rows.Close()
	var out []model.PatientRecord
	for rows.Next() {
		var r model.PatientRecord
		if err := rows.Scan(&r.PatientID, &r.Name, &r.PrimaryDiagnosis, &r.DischargeDate, pq.Array(&r.Medications),
			&r.DietaryRestrictions, &r.FollowUp, &r.WarningSigns, &r.DischargeInstructions); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
