// Package main provides the CLI entrypoint for tafel.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tafel/internal/config"
	"github.com/verte-zerg/tafel/internal/rewards"
	"github.com/verte-zerg/tafel/internal/scorefile"
	"github.com/verte-zerg/tafel/internal/stats"
	"github.com/verte-zerg/tafel/internal/statsui"
	"github.com/verte-zerg/tafel/internal/tui"
)

const (
	defaultQuestions   = 20
	defaultCurveWindow = 5
	defaultTopTables   = 3
	defaultRecentSize  = 3
	defaultLogLevel    = "info"
)

var defaultTables = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

var (
	profileKey string

	practiceTables []int

	testTables    []int
	testQuestions int
	testSpeed     string

	progressPlain  bool
	progressMetric string
	progressWindow int
	progressTop    int

	profileAvatar string
	resetConfirm  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tafel",
		Short:         "Multiplication table practice game",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runMenuCmd,
	}
	rootCmd.PersistentFlags().StringVar(&profileKey, "profile", "", "player name or id")

	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newTestCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func runMenuCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	app := e.app(cmd.Context())
	return runScreens(app, tui.NewMenu(app))
}

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice tables at your own pace",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	cmd.Flags().IntSliceVar(&practiceTables, "tables", defaultTables, "tables to practice, e.g. 3,4,7")
	return cmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	app := e.app(cmd.Context())
	if app.Profile.ID == "" {
		return runScreens(app, tui.NewMenu(app))
	}
	return runScreens(app, tui.NewPractice(app, app.Settings.PracticeTables))
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Take a timed test",
		Args:  cobra.NoArgs,
		RunE:  runTestCmd,
	}
	cmd.Flags().IntSliceVar(&testTables, "tables", defaultTables, "tables in the test, e.g. 3,4,7")
	cmd.Flags().IntVar(&testQuestions, "questions", defaultQuestions, "number of questions")
	cmd.Flags().StringVar(&testSpeed, "speed", rewards.DefaultSpeed, "pace: "+speedNames())
	return cmd
}

func runTestCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	app := e.app(cmd.Context())
	if app.Profile.ID == "" {
		return runScreens(app, tui.NewMenu(app))
	}
	s := app.Settings
	return runScreens(app, tui.NewTest(app, s.TestTables, s.Questions, s.Speed))
}

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show progress, tricky tables and the leaderboard",
		Args:  cobra.NoArgs,
		RunE:  runProgressCmd,
	}
	cmd.Flags().BoolVar(&progressPlain, "plain", false, "print text instead of opening the TUI")
	cmd.Flags().StringVar(&progressMetric, "metric", string(stats.MetricAccuracy), "leaderboard metric: accuracy, speed or coins")
	cmd.Flags().IntVar(&progressWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().IntVar(&progressTop, "top", defaultTopTables, "number of tricky tables to show")
	return cmd
}

func runProgressCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()
	app := e.app(ctx)
	if app.Profile.ID == "" {
		return errNoProfile
	}
	plain := progressPlain || !term.IsTerminal(int(os.Stdout.Fd()))
	if !plain {
		m := statsui.NewModel(e.agg, statsui.Config{
			Profile:     app.Profile,
			CurveWindow: app.Settings.CurveWindow,
			TopTables:   app.Settings.TopTables,
			Metric:      app.Settings.Metric,
		})
		program := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run progress TUI: %w", err)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Player: %s (%d coins)\n\n", app.Profile.DisplayName, app.Profile.Coins); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSummary(out, e.agg.Overview(ctx, app.Profile.ID)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderTrend(out, e.agg.Trend(ctx, app.Profile.ID), app.Settings.CurveWindow); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	ranks := e.agg.TableDifficulty(ctx, app.Profile.ID)
	if top := app.Settings.TopTables; top > 0 && len(ranks) > top {
		ranks = ranks[:top]
	}
	if err := stats.RenderTrickyTable(out, ranks); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	board, err := e.agg.Leaderboard(ctx, app.Settings.Metric)
	if err != nil {
		return err
	}
	if err := stats.RenderLeaderboard(out, board, app.Settings.Metric); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if e.notice != "" {
		logErrln(e.notice)
	}
	return nil
}

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List, add or reset players",
		Args:  cobra.NoArgs,
		RunE:  runProfilesListCmd,
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List players",
		Args:  cobra.NoArgs,
		RunE:  runProfilesListCmd,
	}
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a player",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfilesAddCmd,
	}
	add.Flags().StringVar(&profileAvatar, "avatar", "", "avatar name")
	reset := &cobra.Command{
		Use:   "reset <name-or-id>",
		Short: "Delete a player's practice history and test results",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfilesResetCmd,
	}
	reset.Flags().BoolVar(&resetConfirm, "yes", false, "confirm the reset")
	cmd.AddCommand(list, add, reset)
	return cmd
}

func runProfilesListCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	profiles, err := e.store.ListProfiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(profiles) == 0 {
		logErrln("No players yet. Add one with: tafel profiles add <name>")
		return nil
	}
	for _, p := range profiles {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d coins\t%s\n", p.DisplayName, p.Coins, p.ID); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runProfilesAddCmd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	p, err := e.store.CreateProfile(cmd.Context(), args[0], profileAvatar)
	if err != nil {
		return fmt.Errorf("failed to add profile: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", p.DisplayName, p.ID)
	return err
}

func runProfilesResetCmd(cmd *cobra.Command, args []string) error {
	if !resetConfirm {
		return fmt.Errorf("resetting deletes all progress for %q; rerun with --yes", args[0])
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := cmd.Context()
	p, err := e.store.FindProfile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to find profile: %w", err)
	}
	if err := e.store.ResetProgress(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to reset profile: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Reset progress for %s\n", p.DisplayName)
	return err
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <scores.json>",
		Short: "Copy test results from a JSON score file into the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("failed to read score file: %w", err)
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	if e.memory {
		return fmt.Errorf("database unavailable; nothing was imported")
	}
	ctx := cmd.Context()
	src, err := scorefile.Open(args[0], e.logger)
	if err != nil {
		return fmt.Errorf("failed to open score file: %w", err)
	}
	all, err := src.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to read score file: %w", err)
	}
	imported, skipped, players := 0, 0, 0
	for profileID, results := range all {
		name := profileID
		if len(results) > 0 && results[0].ProfileName != "" {
			name = results[0].ProfileName
		}
		created, err := e.store.EnsureProfile(ctx, profileID, name)
		if err != nil {
			return fmt.Errorf("failed to create profile %s: %w", profileID, err)
		}
		if created {
			players++
		}
		for _, r := range results {
			wrote, err := e.store.ImportResult(ctx, r)
			if err != nil {
				return fmt.Errorf("failed to import result: %w", err)
			}
			if wrote {
				imported++
			} else {
				skipped++
			}
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d results (%d already present, %d new players)\n", imported, skipped, players)
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

var errNoProfile = errors.New("choose a player with --profile, or add one with: tafel profiles add <name>")

func runScreens(app *tui.App, start tui.Screen) error {
	program := tea.NewProgram(tui.NewModel(app, start), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func speedNames() string {
	names := make([]string, 0, 4)
	for _, s := range rewards.Speeds() {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(target, value *float64) {
	if value == nil {
		return
	}
	*target = *value
}

// applyTablesConfig applies file tables unless owner's --tables flag was set.
func applyTablesConfig(cmd *cobra.Command, owner string, target, value *[]int) {
	if value == nil {
		return
	}
	if cmd.Name() == owner && cmd.Flags().Changed("tables") {
		return
	}
	*target = append([]int(nil), (*value)...)
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tafel configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# tables = %s   # Tables to practice
# recent-size = %d                          # Recently asked facts that are asked less

[test]
# tables = %s   # Tables in a test
# questions = %d                            # Questions per test
# speed = %q                          # snail, turtle, hare or cheetah

[selector]
# base-weight = 4.0      # Extra weight for facts answered wrong
# min-weight = 0.25      # Weight of fully mastered facts
# slow-ratio = 1.5       # Slow when slower than ratio x the player's average
# slow-boost = 1.5       # Weight multiplier for slow facts
# recent-damping = 0.05  # Weight multiplier for recently asked facts
# max-factor = 10        # Largest factor asked

[storage]
# backend = %q       # sqlite or json
# path = ""              # Database or score file path

[log]
# level = %q           # debug, info, warn or error
# file = ""              # Log file path

[progress]
# metric = %q      # Leaderboard metric: accuracy, speed or coins
# curve-window = %d        # Moving average window
# top = %d                 # Tricky tables to show

[profile]
# default = ""           # Player name or id used when --profile is not given
`,
		formatTables(defaultTables),
		defaultRecentSize,
		formatTables(defaultTables),
		defaultQuestions,
		rewards.DefaultSpeed,
		config.BackendSQLite,
		defaultLogLevel,
		stats.MetricAccuracy,
		defaultCurveWindow,
		defaultTopTables,
	)
}

func formatTables(tables []int) string {
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("%d", t)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}


func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
