package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/adapters/sessioncache"
	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/workspace"
)

var (
	sessionsProject  string
	sessionsTask     string
	sessionsProvider string
)

// sessionsCmd manages agent sessions from the command line.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and manage agent sessions",
	Long: `List and manage agent sessions without opening the workspace.

Examples:
  crewdeck sessions list --project myapp
  crewdeck sessions start --task TASK-42 --provider claude
  crewdeck sessions stop 0b2f1c8a
  crewdeck sessions close 0b2f1c8a
  crewdeck sessions history 0b2f1c8a`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions in a scope",
	RunE:  runSessionsList,
}

var sessionsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new agent session",
	RunE:  runSessionsStart,
}

var sessionsStopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Stop a running session, keeping it on the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsStop,
}

var sessionsCloseCmd = &cobra.Command{
	Use:   "close <session-id>",
	Short: "Stop and delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClose,
}

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show a cached chat transcript",
	Long: `Show the locally cached chat transcript for a session.

Without an id, lists the sessions that have cached transcripts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionsHistory,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsStartCmd)
	sessionsCmd.AddCommand(sessionsStopCmd)
	sessionsCmd.AddCommand(sessionsCloseCmd)
	sessionsCmd.AddCommand(sessionsHistoryCmd)

	for _, c := range []*cobra.Command{sessionsListCmd, sessionsStartCmd} {
		c.Flags().StringVar(&sessionsProject, "project", "", "project scope")
		c.Flags().StringVar(&sessionsTask, "task", "", "task scope")
		c.MarkFlagsMutuallyExclusive("project", "task")
	}
	sessionsStartCmd.Flags().StringVar(&sessionsProvider, "provider", "claude", "agent provider to launch")
}

func sessionsScope() (domain.Scope, error) {
	switch {
	case sessionsProject != "":
		return domain.Scope{Kind: domain.ScopeProject, ID: sessionsProject}, nil
	case sessionsTask != "":
		return domain.Scope{Kind: domain.ScopeTask, ID: sessionsTask}, nil
	default:
		return domain.Scope{}, fmt.Errorf("one of --project or --task is required")
	}
}

func apiFromConfig() (*api.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)
	return api.New(cfg.Server.URL, cfg.Server.Token, cfg.Server.RequestTimeout), cfg, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	scope, err := sessionsScope()
	if err != nil {
		return err
	}
	client, _, err := apiFromConfig()
	if err != nil {
		return err
	}

	sessions, err := client.ListSessions(cmd.Context(), scope)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Printf("no sessions in %s/%s\n", scope.Kind, scope.ID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROVIDER\tCREATED\tTERMINAL")
	for _, s := range sessions {
		terminal := "-"
		if s.TerminalTarget != "" {
			terminal = s.TerminalTarget
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Status, s.Provider, s.CreatedAt.Local().Format("2006-01-02 15:04"), terminal)
	}
	return w.Flush()
}

func runSessionsStart(cmd *cobra.Command, args []string) error {
	scope, err := sessionsScope()
	if err != nil {
		return err
	}
	client, _, err := apiFromConfig()
	if err != nil {
		return err
	}

	sess, err := client.StartSession(cmd.Context(), scope, sessionsProvider)
	if err != nil {
		return err
	}
	fmt.Printf("started %s (%s) in %s/%s\n", sess.ID, sess.Provider, scope.Kind, scope.ID)
	return nil
}

func runSessionsStop(cmd *cobra.Command, args []string) error {
	client, _, err := apiFromConfig()
	if err != nil {
		return err
	}
	if err := client.StopSession(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("stopped %s\n", args[0])
	return nil
}

func runSessionsClose(cmd *cobra.Command, args []string) error {
	client, _, err := apiFromConfig()
	if err != nil {
		return err
	}

	sess, err := client.GetSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	// Same stop-then-delete path the workspace uses.
	controller := workspace.NewController(workspace.NewStore(), client)
	if err := controller.CloseSession(cmd.Context(), sess); err != nil {
		return err
	}
	fmt.Printf("closed %s\n", sess.ID)
	return nil
}

func runSessionsHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Cache.Enabled {
		return fmt.Errorf("transcript cache is disabled (cache.enabled: false)")
	}

	cache, err := sessioncache.Open(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("failed to open transcript cache: %w", err)
	}
	defer cache.Close()

	if len(args) == 0 {
		ids, err := cache.Sessions()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("no cached transcripts")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	messages, err := cache.Messages(args[0])
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Printf("no cached transcript for %s\n", args[0])
		return nil
	}
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = m.Kind
		}
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), role, m.Text)
	}
	return nil
}
