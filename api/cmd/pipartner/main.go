// Command pipartner is the terminal client: it solves problems from the
// command line and keeps history and conversation context in a local SQLite file.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"pipartner/api/internal/config"
	"pipartner/api/internal/history"
	"pipartner/api/internal/inference"
	"pipartner/api/internal/kv"
	"pipartner/api/internal/logging"
	"pipartner/api/internal/render"
	"pipartner/api/internal/session"
	"pipartner/api/internal/util"
)

const localScope = "local"

type options struct {
	dbPath  string
	style   string
	width   int
	verbose bool
}

// app is what every subcommand runs against; it is built in PersistentPreRunE.
type app struct {
	opts   *options
	logger *zap.Logger
	db     *sql.DB
	sess   *session.Session
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "pipartner",
		Short: "Step-by-step explanations for homework problems",
		Long: `pipartner sends a problem to the solver and prints the explanation.

Each question continues the current conversation until "pipartner new" is run,
so follow-ups like "why?" refer to the first problem of the thread.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// help and shell completion need no store
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.HasParent() && cmd.Parent().Name() == "completion" {
				return nil
			}
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite file (default $SQLITE_PATH or pipartner.db)")
	root.PersistentFlags().StringVar(&opts.style, "style", "auto", "glamour style: auto, dark, light, notty")
	root.PersistentFlags().IntVar(&opts.width, "width", 100, "word wrap width")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.askCmd(), a.historyCmd(), a.replayCmd(), a.newCmd(), a.clearCmd())
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireSolver(); err != nil {
		return err
	}

	a.logger, err = logging.NewConsole(a.opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	path := a.opts.dbPath
	if path == "" {
		path = cfg.SQLitePath
	}
	a.db, err = sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	a.db.SetMaxOpenConns(1)
	store := kv.NewSQLite(a.db)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var solver inference.Solver
	if cfg.InferenceURL != "" {
		solver = inference.NewClient(cfg.InferenceURL, cfg.InferenceTimeout)
	} else {
		solver = inference.NewGeminiSolver(cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	sess, warnings := session.NewManager(store, solver, a.logger).Get(ctx, localScope)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	a.sess = sess
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) askCmd() *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "ask [problem]",
		Short: "Solve a problem, or follow up on the current one",
		Example: `  pipartner ask "2x + 3 = 11"
  pipartner ask "why divide by 2?"
  pipartner ask --image page.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := session.Params{Problem: strings.Join(args, " ")}
			if imagePath != "" {
				b, err := os.ReadFile(imagePath)
				if err != nil {
					return err
				}
				if !strings.HasPrefix(util.SniffImageMIME(b), "image/") {
					return fmt.Errorf("%s: not a JPEG or PNG image", imagePath)
				}
				p.Image = util.EncodeImage(b)
			}

			out, err := a.sess.Submit(cmd.Context(), p)
			if errors.Is(err, inference.ErrEmptyProblem) {
				return errors.New("give a problem as text or with --image")
			}
			if err != nil {
				return fmt.Errorf("could not reach the solver: %w", err)
			}
			return a.printOutcome(cmd.OutOrStdout(), cmd.ErrOrStderr(), out)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "photo of the problem")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List solved problems, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items := a.sess.History()
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is empty.")
				return nil
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			writeHistory(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max items, 0 for all")
	return cmd
}

func (a *app) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <id>",
		Short: "Show a stored explanation and continue its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.sess.Replay(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printOutcome(cmd.OutOrStdout(), cmd.ErrOrStderr(), out)
		},
	}
}

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Forget the current conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sess.NewConversation(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Started a new conversation.")
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sess.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}

func (a *app) printOutcome(w, errw io.Writer, out session.Outcome) error {
	for _, warn := range out.Warnings {
		fmt.Fprintln(errw, "warning:", warn)
	}
	if out.ErrorMessage != "" {
		return errors.New(out.ErrorMessage)
	}

	var md strings.Builder
	switch {
	case out.Replayed:
		md.WriteString("*From history*\n\n")
	case out.IsFollowUp:
		md.WriteString("*Follow-up*\n\n")
	}
	if out.Problem != "" {
		fmt.Fprintf(&md, "**Problem:** %s\n\n", out.Problem)
	}
	md.WriteString(out.Explanation)

	text, err := render.Terminal(md.String(), a.opts.style, a.opts.width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

func writeHistory(w io.Writer, items []history.Item) {
	for _, it := range items {
		mark := " "
		if it.IsFollowUp {
			mark = "↪"
		}
		ts := time.UnixMilli(it.Timestamp).Local().Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s  %s %s %s\n", it.ID, ts, mark, oneLine(it.Problem, 60))
	}
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
