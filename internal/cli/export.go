package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export patient records as JSON",
		Long:  "Print every record from the configured patient source in the format import expects.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	patients, closePatients, err := openPatients(cmd.Context())
	if err != nil {
		exitErr("open patients", err)
	}
	defer closePatients()

	records, err := patients.All(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(records, "", "  ")
	fmt.Println(string(b))
}
