package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rcliao/discharge-care/internal/agent"
	"github.com/rcliao/discharge-care/internal/composer"
	"github.com/rcliao/discharge-care/internal/model"
	"github.com/rcliao/discharge-care/internal/orchestrator"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the agents in the terminal",
		Long:  "Start an interactive session. Type help for commands and exit to leave.",
		Args:  cobra.NoArgs,
		Run:   runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	a, err := buildApp(cmd.Context())
	if err != nil {
		exitErr("start", err)
	}
	defer a.Close()

	newREPL(a.orch, os.Stdin, os.Stdout).Run(cmd.Context())
}

var (
	receptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	clinicalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type replCommand int

const (
	cmdMessage replCommand = iota
	cmdEmpty
	cmdExit
	cmdHelp
	cmdStatus
)

func parseCommand(input string) replCommand {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return cmdEmpty
	case "exit", "quit", "bye", "goodbye", "end":
		return cmdExit
	case "help", "?", "commands":
		return cmdHelp
	case "status", "info", "about":
		return cmdStatus
	}
	return cmdMessage
}

// repl runs one terminal conversation against the orchestrator.
type repl struct {
	orch    *orchestrator.Orchestrator
	session string
	in      *bufio.Scanner
	out     io.Writer
	started time.Time
	turns   int
	agent   model.AgentKind
	patient string
}

func newREPL(orch *orchestrator.Orchestrator, in io.Reader, out io.Writer) *repl {
	return &repl{
		orch:    orch,
		session: uuid.NewString(),
		in:      bufio.NewScanner(in),
		out:     out,
		started: time.Now(),
		agent:   model.AgentReceptionist,
	}
}

// Run reads lines until exit, end of input or ctx is done.
func (r *repl) Run(ctx context.Context) {
	r.say(model.AgentReceptionist, agent.Opening)
	for ctx.Err() == nil {
		fmt.Fprint(r.out, "\n"+systemStyle.Render("You: "))
		if !r.in.Scan() {
			fmt.Fprintln(r.out, "\n\nSession ended. Take care!")
			return
		}
		input := strings.TrimSpace(r.in.Text())

		switch parseCommand(input) {
		case cmdExit:
			fmt.Fprintln(r.out, "\nThank you for using our post-discharge care system.")
			fmt.Fprintln(r.out, "Wishing you a smooth recovery! Take care!")
			return
		case cmdEmpty:
			fmt.Fprintln(r.out, dimStyle.Render("Please share what's on your mind, or type 'help' for assistance."))
			continue
		case cmdHelp:
			r.help()
			continue
		case cmdStatus:
			r.status()
			continue
		}

		r.turns++
		reply, err := r.orch.Handle(ctx, orchestrator.Request{SessionID: r.session, Input: input})
		if err != nil {
			logger.Error("turn failed", "session", r.session, "err", err)
			fmt.Fprintln(r.out, "\nI apologize, but I encountered a technical issue. For urgent medical concerns, please contact your healthcare provider directly.")
			continue
		}
		r.show(reply)
	}
}

func (r *repl) show(reply orchestrator.Reply) {
	if reply.PatientReport != nil {
		r.patient = reply.PatientReport.Name
	}
	if reply.Agent != r.agent && reply.Agent == model.AgentReceptionist {
		r.transition("Administrative request")
	}
	r.agent = reply.Agent
	r.say(reply.Agent, reply.Response)

	switch {
	case reply.Status == model.StatusRouteClinical:
		r.transition("Medical concern detected")
		r.agent = model.AgentClinical
		r.say(model.AgentClinical, reply.Welcome)
	case reply.Status == model.StatusClarify && reply.Agent == model.AgentReceptionist && r.patient == "":
		fmt.Fprintln(r.out, dimStyle.Render("Tip: please spell your name exactly as it appears on your discharge papers."))
	case reply.Status == model.StatusEnded:
		r.agent = model.AgentReceptionist
		r.patient = ""
	}
}

func (r *repl) say(kind model.AgentKind, text string) {
	label := receptionStyle.Render(composer.Receptionist.Name + " (Reception):")
	if kind == model.AgentClinical {
		label = clinicalStyle.Render(composer.Clinical.Name + " (Clinical):")
	}
	fmt.Fprintf(r.out, "\n%s %s\n", label, text)
}

func (r *repl) transition(reason string) {
	fmt.Fprintln(r.out, "\n"+systemStyle.Render("-> Transferring: "+reason))
}

func (r *repl) help() {
	fmt.Fprintln(r.out, "\n"+systemStyle.Render("HELP & COMMANDS"))
	fmt.Fprintln(r.out, "Chat naturally with the agents.")
	fmt.Fprintln(r.out, "Clinical questions are routed to the specialist; administrative questions stay with reception.")
	fmt.Fprintln(r.out, dimStyle.Render("  exit, quit, bye   end the session"))
	fmt.Fprintln(r.out, dimStyle.Render("  help, ?           show this help"))
	fmt.Fprintln(r.out, dimStyle.Render("  status            show session info"))
}

func (r *repl) status() {
	fmt.Fprintln(r.out, "\n"+systemStyle.Render("Session Status"))
	fmt.Fprintf(r.out, "  Duration: %s\n", time.Since(r.started).Round(time.Second))
	fmt.Fprintf(r.out, "  Interactions: %d\n", r.turns)
	fmt.Fprintf(r.out, "  Currently with: %s agent\n", r.agent)
	if r.patient != "" {
		fmt.Fprintf(r.out, "  Patient: %s\n", r.patient)
	}
}
