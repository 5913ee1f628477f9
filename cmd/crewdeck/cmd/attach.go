package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crewdeck/crewdeck/internal/adapters/deeplink"
	"github.com/crewdeck/crewdeck/internal/adapters/sessioncache"
	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/chat"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/retry"
	"github.com/crewdeck/crewdeck/internal/term"
	"github.com/crewdeck/crewdeck/internal/tui"
	"github.com/crewdeck/crewdeck/internal/workspace"
)

var (
	attachProject string
	attachTask    string
	attachSession string
)

// attachCmd opens the interactive workspace.
var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Open the interactive session workspace",
	Long: `Attach to the orchestration server and open the tabbed workspace.

The session list for the chosen scope is mirrored into tabs and kept fresh
in the background; chat and terminal streams reconnect on their own when
the connection drops.

Example:
  crewdeck attach --project myapp
  crewdeck attach --task TASK-42
  crewdeck attach --project myapp --session 0b2f1c   # jump to a session`,
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachProject, "project", "", "attach to a project's sessions")
	attachCmd.Flags().StringVar(&attachTask, "task", "", "attach to a task's sessions")
	attachCmd.Flags().StringVar(&attachSession, "session", "", "activate this session once the list loads")
	attachCmd.MarkFlagsMutuallyExclusive("project", "task")
}

func runAttach(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	scope, err := attachScope()
	if err != nil {
		return err
	}

	// The TUI owns stderr, so logs go to a file for this command.
	logFile, supervisor, err := setupAttachLogging(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.New(cfg.Server.URL, cfg.Server.Token, cfg.Server.RequestTimeout)
	store := workspace.NewStore()
	reconciler := workspace.NewReconciler(store, client)
	controller := workspace.NewController(store, client)

	supervisor.Info("attaching",
		"server", cfg.Server.URL,
		"scope", fmt.Sprintf("%s/%s", scope.Kind, scope.ID),
		"version", version,
	)

	if attachSession != "" {
		store.RequestActivate(attachSession)
	}

	if err := reconciler.SetScope(ctx, scope); err != nil {
		supervisor.Warn("initial session list fetch failed; retrying in background", "err", err)
	}
	go reconciler.Run(ctx, cfg.Server.RefreshEvery)

	var cache *sessioncache.Cache
	if cfg.Cache.Enabled {
		cache, err = sessioncache.Open(cfg.Cache.Dir)
		if err != nil {
			supervisor.Warn("transcript cache unavailable", "err", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	if cfg.DeepLink.Enabled {
		watcher, err := deeplink.Watch(cfg.DeepLink.File)
		if err != nil {
			supervisor.Warn("deep link watcher unavailable", "err", err)
		} else {
			defer watcher.Close()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case id, ok := <-watcher.Requests():
						if !ok {
							return
						}
						supervisor.Info("activate request received", "session", id)
						store.RequestActivate(id)
						reconciler.Invalidate()
					}
				}
			}()
		}
	}

	model := tui.New(tui.Options{
		Store:      store,
		Reconciler: reconciler,
		Controller: controller,
		Version:    version,
		Scrollback: cfg.Terminal.ScrollbackLines,
		NewChat: func(sessionID string, status func() domain.SessionStatus, onChange func()) *chat.Client {
			opts := chat.Options{
				URL:           client.ChatStreamURL(sessionID),
				Sender:        client,
				SessionStatus: status,
				Retry:         newRetryPolicy(cfg),
				OnChange:      onChange,
			}
			if cache != nil {
				opts.Transcript = cache
			}
			return chat.Open(sessionID, opts)
		},
		NewTerm: func(target, sessionID string, surface *tui.TermSurface, status func() domain.SessionStatus, onChange func()) *term.Client {
			return term.Attach(target, sessionID, term.Options{
				URL:           client.TerminalStreamURL(target, sessionID),
				Surface:       surface,
				SessionStatus: status,
				Retry:         newRetryPolicy(cfg),
				OnChange:      onChange,
			})
		},
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("workspace error: %w", err)
	}

	supervisor.Info("detached")
	return nil
}

// attachScope resolves the --project/--task flags into a scope.
func attachScope() (domain.Scope, error) {
	switch {
	case attachProject != "":
		return domain.Scope{Kind: domain.ScopeProject, ID: attachProject}, nil
	case attachTask != "":
		return domain.Scope{Kind: domain.ScopeTask, ID: attachTask}, nil
	default:
		return domain.Scope{}, fmt.Errorf("one of --project or --task is required")
	}
}

// newRetryPolicy builds a fresh reconnect policy from config. Each stream
// client gets its own so attempt counters never bleed across streams.
func newRetryPolicy(cfg *config.Config) *retry.Policy {
	return retry.NewPolicy(cfg.Retry.Delays, cfg.Retry.MaxAttempts, cfg.Retry.StabilityWindow)
}

// setupAttachLogging routes zerolog to a log file and builds the tinted
// supervisor logger used for attach lifecycle events.
func setupAttachLogging(cfg *config.Config) (*os.File, *slog.Logger, error) {
	dir := filepath.Join(os.TempDir(), "crewdeck")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(dir, "crewdeck.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	slogLevel := slog.LevelInfo
	if verbose {
		level = zerolog.DebugLevel
		slogLevel = slog.LevelDebug
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(logFile)

	supervisor := slog.New(tint.NewHandler(logFile, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.Kitchen,
		NoColor:    true,
	}))
	return logFile, supervisor, nil
}
