package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ldi/devflow/internal/config"
	"github.com/ldi/devflow/internal/db"
	"github.com/ldi/devflow/internal/export"
	"github.com/ldi/devflow/internal/mcp"
	"github.com/ldi/devflow/internal/output"
	"github.com/ldi/devflow/internal/server"
	"github.com/ldi/devflow/internal/store"
	"github.com/ldi/devflow/internal/ui"
	"github.com/ldi/devflow/pkg/models"
)

const shutdownTimeout = 5 * time.Second

// runMenu and isTerminal are swapped out in tests.
var (
	runMenu    = ui.RunMenu
	isTerminal = func() bool {
		fd := os.Stdin.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprint(os.Stderr, output.NewHumanFormatter().FormatError(err))
		}
		os.Exit(1)
	}
}

// reportedError wraps an error that a formatter already wrote to stderr.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// fail writes err to stderr in the command's output format.
func fail(cmd *cobra.Command, f output.Formatter, err error) error {
	fmt.Fprint(cmd.ErrOrStderr(), f.FormatError(err))
	return reportedError{err: err}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	store  *store.Store
	logger *log.Logger
}

func newApp(cmd *cobra.Command, create bool) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveWorkDir(create); err != nil {
		return nil, err
	}

	logger := log.New(cmd.ErrOrStderr(), "devflow: ", log.LstdFlags)
	return &app{
		cfg:    cfg,
		store:  store.New(store.WithLogger(logger)),
		logger: logger,
	}, nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "devflow",
		Short:         "File-based task tracking for AI coding assistants",
		Long:          "devflow keeps a project's task list in .tasks.json and exposes it over MCP (stdio, HTTP, SSE) and the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal() {
				return cmd.Help()
			}
			selected, err := runMenu()
			if err != nil {
				return fmt.Errorf("failed to run menu: %w", err)
			}
			if len(selected) == 0 {
				return nil
			}
			sub, rest, err := cmd.Find(selected)
			if err != nil || sub == cmd {
				return fmt.Errorf("unknown command: %s", strings.Join(selected, " "))
			}
			// ParseFlags merges the root's parsed --dir into sub.
			if err := sub.ParseFlags(rest); err != nil {
				return err
			}
			sub.SetContext(cmd.Context())
			return sub.RunE(sub, sub.Flags().Args())
		},
	}

	rootCmd.PersistentFlags().String("dir", "", "Working directory holding .tasks.json (default: current directory, or $WORK_DIR)")

	rootCmd.AddCommand(
		mcpCmd(),
		serveCmd(),
		listCmd(),
		statusCmd(),
		addCmd(),
		startCmd(),
		completeCmd(),
		snoozeCmd(),
		rmCmd(),
		exportCmd(),
		importCmd(),
	)
	return rootCmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}

			a.logger.Printf("DevFlow MCP server starting (dir: %s)", a.cfg.WorkDir)
			s := mcp.NewServer(a.store, a.cfg.WorkDir)
			return mcp.Serve(cmd.Context(), s, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (REST, JSON-RPC and SSE)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			srv := server.NewServer(a.cfg, a.store, server.WithLogger(a.logger))

			errCh := make(chan error, 1)
			go func() {
				a.logger.Printf("DevFlow HTTP server listening on %s (dir: %s)", a.cfg.Addr(), a.cfg.WorkDir)
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			a.logger.Printf("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down: %w", err)
			}
			return <-errCh
		},
	}
	cmd.Flags().Int("port", config.DefaultPort, "Port to listen on (default: $PORT or 3000)")
	cmd.Flags().String("host", config.DefaultHost, "Interface to listen on")
	return cmd
}

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", "human", "Output format ("+strings.Join(output.Formats, ", ")+")")
}

func printOutput(cmd *cobra.Command, s string) {
	fmt.Fprint(cmd.OutOrStdout(), s)
}

func addFromFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "from", "", "Read tasks from a SQLite backup written by 'export --format sqlite' instead of .tasks.json")
}

// listTasks answers from the backup at from when set, else from the working
// directory.
func listTasks(cmd *cobra.Command, from string, filter models.TaskStatus) (models.ListResult, error) {
	if from != "" {
		return db.ListSnapshot(cmd.Context(), from, filter)
	}
	a, err := newApp(cmd, false)
	if err != nil {
		return models.ListResult{}, err
	}
	return a.store.List(cmd.Context(), a.cfg.WorkDir, filter), nil
}

func listCmd() *cobra.Command {
	var status, format, from string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			filter := models.TaskStatus("")
			if status != "" {
				if filter, err = models.ParseStatus(status); err != nil {
					return fail(cmd, formatter, err)
				}
			}

			result, err := listTasks(cmd, from, filter)
			if err != nil {
				return fail(cmd, formatter, err)
			}
			printOutput(cmd, formatter.FormatList(result))
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only show tasks with this status (pending, in_progress, done, snoozed)")
	addFormatFlag(cmd, &format)
	addFromFlag(cmd, &from)
	return cmd
}

func statusCmd() *cobra.Command {
	var format, from string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			result, err := listTasks(cmd, from, "")
			if err != nil {
				return fail(cmd, formatter, err)
			}
			printOutput(cmd, formatter.FormatSummary(result.Summary))
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	addFromFlag(cmd, &from)
	return cmd
}

func addCmd() *cobra.Command {
	var description, format string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, false)
			if err != nil {
				return fail(cmd, formatter, err)
			}
			t, err := a.store.Add(cmd.Context(), a.cfg.WorkDir, args[0], description)
			if err != nil {
				return fail(cmd, formatter, err)
			}
			printOutput(cmd, formatter.FormatMessage(fmt.Sprintf("Task added: [%s] %s", t.ID, t.Title)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	addFormatFlag(cmd, &format)
	return cmd
}

// transitionCmd builds a command that applies one status change to a task.
func transitionCmd(use, short, label string, nargs int, apply func(ctx context.Context, a *app, args []string) (*models.Task, error)) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, false)
			if err != nil {
				return fail(cmd, formatter, err)
			}
			t, err := apply(cmd.Context(), a, args)
			if errors.Is(err, store.ErrNotFound) {
				return fail(cmd, formatter, fmt.Errorf("task not found: %s", args[0]))
			}
			if err != nil {
				return fail(cmd, formatter, err)
			}
			msg := label
			if nargs > 1 {
				msg += " until " + args[1]
			}
			printOutput(cmd, formatter.FormatMessage(fmt.Sprintf("%s: [%s] %s", msg, t.ID, t.Title)))
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func startCmd() *cobra.Command {
	return transitionCmd("start <id>", "Mark a task as in progress", "Task started", 1,
		func(ctx context.Context, a *app, args []string) (*models.Task, error) {
			return a.store.Start(ctx, a.cfg.WorkDir, args[0])
		})
}

func completeCmd() *cobra.Command {
	cmd := transitionCmd("complete <id>", "Mark a task as done", "Task completed", 1,
		func(ctx context.Context, a *app, args []string) (*models.Task, error) {
			return a.store.Complete(ctx, a.cfg.WorkDir, args[0])
		})
	cmd.Aliases = []string{"done"}
	return cmd
}

func snoozeCmd() *cobra.Command {
	return transitionCmd("snooze <id> <date>", "Postpone a task until a date (YYYY-MM-DD)", "Task snoozed", 2,
		func(ctx context.Context, a *app, args []string) (*models.Task, error) {
			return a.store.Snooze(ctx, a.cfg.WorkDir, args[0], args[1])
		})
}

func rmCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, false)
			if err != nil {
				return fail(cmd, formatter, err)
			}
			deleted, err := a.store.Delete(cmd.Context(), a.cfg.WorkDir, args[0])
			if err != nil {
				return fail(cmd, formatter, err)
			}
			if !deleted {
				return fail(cmd, formatter, fmt.Errorf("task not found: %s", args[0]))
			}
			printOutput(cmd, formatter.FormatMessage("Task deleted: "+args[0]))
			return nil
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func importCmd() *cobra.Command {
	var format string
	var force bool
	cmd := &cobra.Command{
		Use:   "import <backup.db>",
		Short: "Restore .tasks.json from a SQLite backup",
		Long:  "import replaces the working directory's task list with the one stored in a backup written by 'export --format sqlite'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, false)
			if err != nil {
				return fail(cmd, formatter, err)
			}
			ctx := cmd.Context()

			doc, err := db.ImportSnapshot(ctx, args[0])
			if err != nil {
				return fail(cmd, formatter, err)
			}
			if current := a.store.Load(ctx, a.cfg.WorkDir); len(current.Tasks) > 0 && !force {
				return fail(cmd, formatter, fmt.Errorf("%s already holds %d tasks; use --force to replace them", store.FileName, len(current.Tasks)))
			}
			if err := a.store.Replace(ctx, a.cfg.WorkDir, doc); err != nil {
				return fail(cmd, formatter, err)
			}
			printOutput(cmd, formatter.FormatMessage(fmt.Sprintf("Imported %d tasks from %s", len(doc.Tasks), args[0])))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace existing tasks")
	addFormatFlag(cmd, &format)
	return cmd
}

func exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a report of the task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			doc := a.store.Load(ctx, a.cfg.WorkDir)

			if strings.EqualFold(format, "sqlite") {
				if out == "" {
					return errors.New("--out is required for sqlite exports")
				}
				if err := db.ExportSnapshot(ctx, doc, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(doc.Tasks), out)
				return nil
			}

			data, err := export.Export(ctx, doc, format)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := writeFile(out, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(doc.Tasks), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Report format ("+strings.Join(append(append([]string{}, export.Formats...), "sqlite"), ", ")+")")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout; required for sqlite)")
	return cmd
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
