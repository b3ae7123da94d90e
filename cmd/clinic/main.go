package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"clinicops/internal/api"
	"clinicops/internal/auth"
	"clinicops/internal/logging"
	"clinicops/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool
	apiBase string
	timeout time.Duration

	// Logger for non-interactive subcommands
	logger *zap.Logger
)

// engine wires the credential store, transport, resolver and session context
// together. Every subcommand and the interactive console drive the same engine.
type engine struct {
	store   *auth.Store
	client  *api.Client
	session *session.Context
}

func newEngine() (*engine, error) {
	store, err := auth.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	if apiBase != "" {
		if err := store.SetAPIBase(apiBase); err != nil {
			return nil, fmt.Errorf("failed to set API base: %w", err)
		}
	}
	client := api.NewClient(store)
	resolver := auth.NewResolver(store, client)
	return &engine{
		store:   store,
		client:  client,
		session: session.New(store, client, resolver),
	}, nil
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clinic",
	Short: "clinicops - clinical chat operator console",
	Long: `clinicops is an operator console for a clinical chat backend.

It keeps the clinician identity, care task selection, session id, conversation
history and assistant memory synchronized against the backend, and submits
conversation turns through a fixed pipeline.

Run without arguments to start the interactive console.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "clinic" && cmd.CalledAs() == "clinic" {
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole()
	},
}

// loginCmd authenticates against the backend and persists the token
var loginCmd = &cobra.Command{
	Use:   "login [username] [password]",
	Short: "Authenticate and persist the session token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		identity, err := eng.session.Login(ctx, args[0], args[1])
		if err != nil {
			logger.Error("login failed", zap.String("username", args[0]), zap.Error(err))
			return err
		}
		logger.Info("login succeeded",
			zap.String("username", identity.Username),
			zap.String("specialty", identity.Specialty))
		fmt.Printf("Logged in as %s (%s)\n", identity.Username, identity.Specialty)
		return nil
	},
}

// logoutCmd clears the stored token locally
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		eng.session.Logout()
		fmt.Println("Logged out.")
		return nil
	},
}

// statusCmd validates the stored token and reports the identity
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Validate the stored token and show the confirmed identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		identity, err := eng.session.Validate(ctx)
		if err != nil {
			return err
		}
		if identity == nil {
			fmt.Println("Not logged in.")
			return nil
		}
		fmt.Printf("Logged in as %s (%s)\n", identity.Username, identity.Specialty)
		fmt.Printf("API base: %s\n", eng.store.APIBase())
		if task, ok := eng.session.SelectedTask(); ok {
			fmt.Printf("Selected case: #%d %s\n", task.ID, task.Title)
		}
		return nil
	},
}

// tasksCmd lists care tasks
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List care tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if _, err := eng.session.Validate(ctx); err != nil {
			return err
		}
		tasks := eng.session.Tasks()
		if len(tasks) == 0 {
			fmt.Println("No care tasks.")
			return nil
		}
		selected, _ := eng.session.SelectedTask()
		for _, task := range tasks {
			marker := " "
			if task.ID == selected.ID {
				marker = "*"
			}
			fmt.Printf("%s #%-4d %-10s %s\n", marker, task.ID, task.ClinicalPriority, task.Title)
		}
		return nil
	},
}

// sendCmd submits a single conversation turn
var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Submit one conversation turn and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if _, err := eng.session.Validate(ctx); err != nil {
			return err
		}

		toolFlag, _ := cmd.Flags().GetString("tool")
		modeFlag, _ := cmd.Flags().GetString("mode")
		webFlag, _ := cmd.Flags().GetBool("web")

		opts := session.SendOptions{
			UseWebSources:    webFlag,
			ConversationMode: session.ConversationMode(modeFlag),
			Tool:             session.ToolMode(toolFlag),
		}

		query := strings.Join(args, " ")
		logger.Info("submitting turn",
			zap.String("tool", toolFlag),
			zap.String("mode", modeFlag))

		resp, err := eng.session.SendMessage(ctx, query, opts, nil)
		if err != nil {
			return err
		}
		fmt.Println(resp.Answer)
		if resp.NonDiagnosticWarning != "" {
			fmt.Printf("\n%s\n", resp.NonDiagnosticWarning)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "Backend API base URL (persisted)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for backend operations")

	sendCmd.Flags().String("tool", string(session.ToolChat), "Assistant tool (chat|medication|cases|treatment|deep_search|images)")
	sendCmd.Flags().String("mode", string(session.ModeAuto), "Conversation mode (auto|general|clinical)")
	sendCmd.Flags().Bool("web", false, "Allow web sources")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(sendCmd)
}

func main() {
	if dir, err := auth.ConfigDir(); err == nil {
		if err := logging.Initialize(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging unavailable: %v\n", err)
		}
	}
	defer logging.CloseAll()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
