package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/discharge-care/internal/patient"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import patient records into Postgres",
		Long: "Import discharge records from a JSON array (file or stdin) into the patients table at patients.dsn.\n" +
			"Records that fail validation are skipped; existing patients are updated by patient_id.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	if cfg.Patients.DSN == "" {
		exitErr("import", errors.New("patients.dsn is not set"))
	}

	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read records", err)
	}

	records, err := patient.ParseRecords(data, logger)
	if err != nil {
		exitErr("parse records", err)
	}

	pg, err := patient.OpenPostgres(cmd.Context(), cfg.Patients.DSN)
	if err != nil {
		exitErr("open postgres", err)
	}
	defer pg.Close()

	if err := pg.Upsert(cmd.Context(), records); err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", len(records))
}
