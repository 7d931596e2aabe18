package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/orchestrator"
	"github.com/rcliao/discharge-care/internal/patient"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the clinical agent one question",
		Long:  "Look up the patient by name and print a single grounded clinical answer as JSON.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}

	cmd.Flags().StringP("patient", "p", "", "Patient name (required)")
	cmd.MarkFlagRequired("patient")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("patient")
	question := strings.Join(args, " ")

	a, err := buildApp(cmd.Context())
	if err != nil {
		exitErr("start", err)
	}
	defer a.Close()

	m, err := a.patients.Lookup(cmd.Context(), name)
	if err != nil {
		exitErr("lookup", err)
	}
	if m.Status != patient.StatusFound {
		exitErr("lookup", fmt.Errorf("%s: %s", name, m.Status))
	}

	reply, err := a.orch.Handle(cmd.Context(), orchestrator.Request{
		Input:         question,
		Agent:         model.AgentClinical,
		PatientReport: m.Record,
	})
	if err != nil {
		exitErr("ask", err)
	}

	b, _ := json.MarshalIndent(reply, "", "  ")
	fmt.Println(string(b))
}
