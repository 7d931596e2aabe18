package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "lookup [name]",
		Short: "Find a patient's discharge record",
		Long:  "Resolve a patient name the way the receptionist does. Exact matches win over partial ones.",
		Args:  cobra.ArbitraryArgs,
		Run:   runLookup,
	}

	cmd.Flags().Bool("all", false, "List every record")

	RootCmd.AddCommand(cmd)
}

func runLookup(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		exitErr("lookup", fmt.Errorf("a name or --all is required"))
	}

	patients, closePatients, err := openPatients(cmd.Context())
	if err != nil {
		exitErr("open patients", err)
	}
	defer closePatients()

	var out any
	if all {
		out, err = patients.All(cmd.Context())
	} else {
		out, err = patients.Lookup(cmd.Context(), strings.Join(args, " "))
	}
	if err != nil {
		exitErr("lookup", err)
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
