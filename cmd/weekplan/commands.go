package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"weekplan/internal/calendar"
	"weekplan/internal/config"
	"weekplan/internal/ical"
	"weekplan/internal/storage"
	"weekplan/internal/task"
	"weekplan/internal/ui"
)

const layoutISO = "2006-01-02"

// app is the composition root shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
	store  *storage.Store

	// now defaults to time.Now.
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	return newCommand(&app{})
}

func newCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "weekplan",
		Short:         "Plan the week, one day at a time.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUI()
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Path to the config file (default $"+config.EnvConfigPath+" or the user config dir).")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn or error.")

	addUI(cmd, a)
	addWeek(cmd, a)
	addExport(cmd, a)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	_, statErr := os.Stat(path)
	firstLaunch := errors.Is(statErr, os.ErrNotExist)

	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	} else if cmd.Name() == "ui" || cmd == cmd.Root() {
		// Log lines would tear the full-screen view.
		level = "error"
	}
	a.logger = setupLogger(level)
	if firstLaunch {
		a.logger.Info("Wrote default config.", "path", path)
	}

	opts := append(cfg.StoreOptions(), storage.WithLogger(a.logger))
	store, err := storage.Open(cfg.Backend, opts...)
	if err != nil {
		return fmt.Errorf("failed to open task store: %w", err)
	}
	a.store = store
	a.logger.Debug("Task store ready.", "backend", cfg.Backend, "strict", cfg.Strict)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *app) runUI() error {
	if err := ui.Run(a.store, a.cfg); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func addUI(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive week view.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUI()
		},
	}
	topLevel.AddCommand(cmd)
}

// weekOptions are shared by commands that operate on one week window.
type weekOptions struct {
	Offset int
	Add    []string
}

func addWeekArgs(cmd *cobra.Command, o *weekOptions) {
	cmd.Flags().IntVar(&o.Offset, "offset", 0,
		"Weeks relative to the current one, example: --offset=-1.")
	cmd.Flags().StringSliceVar(&o.Add, "add", nil,
		`Add a placeholder task on a date first, example: --add="2025-08-03".`)
}

func (a *app) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

// window is the configured week window read against the app's clock.
func (a *app) window() calendar.Window {
	w := a.cfg.Window()
	w.Now = a.clock
	w.Location = a.clock().Location()
	return w
}

// seed adds the configured placeholder task on every --add date.
func (a *app) seed(o *weekOptions) error {
	for _, v := range o.Add {
		d, err := time.ParseInLocation(layoutISO, strings.TrimSpace(v), a.clock().Location())
		if err != nil {
			return fmt.Errorf("--add %q: %w", v, err)
		}
		if err := a.store.Add(task.Placeholder(d, a.cfg.Placeholder), d); err != nil {
			return err
		}
	}
	return nil
}

func addWeek(topLevel *cobra.Command, a *app) {
	o := &weekOptions{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Print the days of a week and their tasks.",
		Example: `
weekplan week
weekplan week --offset 1 --json
weekplan week --add 2025-08-03
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.seed(o); err != nil {
				return err
			}
			days := a.window().CurrentWeek(o.Offset)
			if asJSON {
				return printWeekJSON(cmd.OutOrStdout(), a.store, days)
			}
			return printWeek(cmd.OutOrStdout(), a.store, days)
		},
	}
	addWeekArgs(cmd, o)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON.")
	topLevel.AddCommand(cmd)
}

func addExport(topLevel *cobra.Command, a *app) {
	o := &weekOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a week's tasks as an iCalendar document.",
		Example: `
weekplan export --add 2025-08-03 > week.ics
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.seed(o); err != nil {
				return err
			}
			days := a.window().CurrentWeek(o.Offset)
			err := ical.Encode(cmd.OutOrStdout(), a.store, days, a.clock())
			if errors.Is(err, ical.ErrNoEvents) {
				a.logger.Warn("Nothing to export.", "from", days[0].ID, "to", days[len(days)-1].ID)
				return nil
			}
			return err
		},
	}
	addWeekArgs(cmd, o)
	topLevel.AddCommand(cmd)
}

type taskSource interface {
	TasksFor(date time.Time) ([]task.Task, error)
}

func printWeek(w io.Writer, src taskSource, days []calendar.Day) error {
	for _, d := range days {
		tasks, err := src.TasksFor(d.Date)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", d.Date.Format("Mon"), d.ID)
		if len(tasks) == 0 {
			fmt.Fprintln(w, "  (no tasks)")
			continue
		}
		for _, t := range tasks {
			line := fmt.Sprintf("  %s  %s", t.TimeRange(), t.Title)
			if t.Location != "" {
				line += " @ " + t.Location
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

type dayJSON struct {
	Day     string     `json:"day"`
	Weekday string     `json:"weekday"`
	Tasks   []taskJSON `json:"tasks"`
}

type taskJSON struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
}

func printWeekJSON(w io.Writer, src taskSource, days []calendar.Day) error {
	out := make([]dayJSON, 0, len(days))
	for _, d := range days {
		tasks, err := src.TasksFor(d.Date)
		if err != nil {
			return err
		}
		dj := dayJSON{Day: d.ID, Weekday: d.Date.Weekday().String(), Tasks: make([]taskJSON, 0, len(tasks))}
		for _, t := range tasks {
			dj.Tasks = append(dj.Tasks, taskJSON{
				ID:       t.ID.String(),
				Title:    t.Title,
				Start:    t.Start,
				End:      t.End,
				Location: t.Location,
			})
		}
		out = append(out, dj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
