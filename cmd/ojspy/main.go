// Package main provides the CLI entrypoint for ojspy.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ojspy/internal/config"
	"github.com/verte-zerg/ojspy/internal/export"
	"github.com/verte-zerg/ojspy/internal/judge"
	"github.com/verte-zerg/ojspy/internal/logging"
	"github.com/verte-zerg/ojspy/internal/model"
	"github.com/verte-zerg/ojspy/internal/pipeline"
	"github.com/verte-zerg/ojspy/internal/scoring"
	"github.com/verte-zerg/ojspy/internal/store"
	"github.com/verte-zerg/ojspy/internal/tui"
)

const (
	defaultFetch      = "paged"
	defaultRatio      = "0.20"
	defaultLogLevel   = "info"
	plainProgressTick = 5 * time.Second
	passwordEnv       = "OJSPY_PASSWORD"
)

var (
	runID         string
	runPassword   string
	runURL        string
	runStudents   string
	runOut        string
	runFlat       bool
	runGrouped    bool
	runFetch      string
	runMaxPages   int
	runTimeout    int
	runUseRatio   bool
	runRatioA     string
	runRatioB     string
	runRatioC     string
	runRatioD     string
	runRatioF     string
	runPlain      bool
	runNoHistory  bool
	runLogLevel   string
	runLogFile    string
	runLoginURL   string
	runLoginMatch string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ojspy",
		Short:         "Collect online-judge scores, rank students and assign grades",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runScoreCmd,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&runID, "id", "", "judge login id")
	flags.StringVar(&runPassword, "password", "", "judge password (prompted when omitted; env "+passwordEnv+")")
	flags.StringVar(&runURL, "url", "", "problem listing page URL")
	flags.StringVar(&runStudents, "students", "", "file with one student id per line ('-' for stdin)")
	flags.StringVar(&runOut, "out", export.DefaultPath, "output file (.xlsx or .csv)")
	flags.BoolVar(&runFlat, "flat", false, "sum every problem score")
	flags.BoolVar(&runGrouped, "grouped", false, "combine N-1/N-2 sub-problem pairs")
	flags.StringVar(&runFetch, "fetch", defaultFetch, "score extraction: paged or table")
	flags.IntVar(&runMaxPages, "max-pages", judge.DefaultMaxPages, "maximum status pages per student and problem")
	flags.IntVar(&runTimeout, "timeout", 0, "per-request timeout in seconds (0 = none)")
	flags.BoolVar(&runUseRatio, "ratio", false, "assign letter grades by cohort ratio")
	flags.StringVar(&runRatioA, "ratio-a", defaultRatio, "share of A grades")
	flags.StringVar(&runRatioB, "ratio-b", defaultRatio, "share of B grades")
	flags.StringVar(&runRatioC, "ratio-c", defaultRatio, "share of C grades")
	flags.StringVar(&runRatioD, "ratio-d", defaultRatio, "share of D grades")
	flags.StringVar(&runRatioF, "ratio-f", defaultRatio, "share of F grades")
	flags.BoolVar(&runPlain, "plain", false, "disable the progress UI and log to stderr")
	flags.BoolVar(&runNoHistory, "no-history", false, "do not record the run in history")
	flags.StringVar(&runLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&runLogFile, "log-file", "", "also append JSON logs to this file")
	flags.StringVar(&runLoginURL, "login-url", judge.DefaultLoginURL, "judge login endpoint")
	flags.StringVar(&runLoginMatch, "login-marker", judge.DefaultLoginMarker, "redirect fragment that marks a successful login")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func applyFileConfig(cmd *cobra.Command, fileCfg config.FileConfig) (string, error) {
	applyStringConfig(cmd, "id", &runID, fileCfg.Run.LoginID)
	applyStringConfig(cmd, "url", &runURL, fileCfg.Run.ListingURL)
	applyStringConfig(cmd, "out", &runOut, fileCfg.Run.Out)
	applyStringConfig(cmd, "fetch", &runFetch, fileCfg.Run.Fetch)
	applyIntConfig(cmd, "max-pages", &runMaxPages, fileCfg.Run.MaxPages)
	applyIntConfig(cmd, "timeout", &runTimeout, fileCfg.Judge.TimeoutSec)
	applyStringConfig(cmd, "login-url", &runLoginURL, fileCfg.Judge.LoginURL)
	applyStringConfig(cmd, "login-marker", &runLoginMatch, fileCfg.Judge.LoginMarker)
	applyBoolConfig(cmd, "ratio", &runUseRatio, fileCfg.Grading.UseRatio)
	applyRatioConfig(cmd, "ratio-a", &runRatioA, fileCfg.Grading.A)
	applyRatioConfig(cmd, "ratio-b", &runRatioB, fileCfg.Grading.B)
	applyRatioConfig(cmd, "ratio-c", &runRatioC, fileCfg.Grading.C)
	applyRatioConfig(cmd, "ratio-d", &runRatioD, fileCfg.Grading.D)
	applyRatioConfig(cmd, "ratio-f", &runRatioF, fileCfg.Grading.F)
	applyStringConfig(cmd, "log-level", &runLogLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &runLogFile, fileCfg.Log.File)
	if fileCfg.Log.File != nil && strings.TrimSpace(*fileCfg.Log.File) == "" && !cmd.Flags().Changed("log-file") {
		runLogFile = config.DefaultLogPath()
	}
	if fileCfg.Run.History != nil && !cmd.Flags().Changed("no-history") {
		runNoHistory = !*fileCfg.Run.History
	}

	// The mode switches are exclusive, so a configured mode only applies
	// when neither switch was given.
	configuredMode := ""
	if fileCfg.Run.Mode != nil {
		configuredMode = *fileCfg.Run.Mode
	}
	return config.ResolveMode(runFlat, runGrouped, configuredMode)
}

func buildRunConfig(mode string, students []string) (model.RunConfig, error) {
	cfg := model.RunConfig{
		LoginID:    strings.TrimSpace(runID),
		Password:   runPassword,
		ListingURL: strings.TrimSpace(runURL),
		Students:   students,
		SavePath:   strings.TrimSpace(runOut),
		Mode:       mode,
		FetchMode:  strings.ToLower(strings.TrimSpace(runFetch)),
		MaxPages:   runMaxPages,
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv(passwordEnv)
	}
	if runUseRatio {
		ratio, err := scoring.ParseRatio(runRatioA, runRatioB, runRatioC, runRatioD, runRatioF)
		if err != nil {
			return model.RunConfig{}, &config.ConfigError{Field: "Ratio", Reason: err.Error()}
		}
		cfg.Ratio = &ratio
	}
	return cfg, nil
}

func runScoreCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	mode, err := applyFileConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	if strings.TrimSpace(runStudents) == "" {
		return &config.ConfigError{Field: "Students", Reason: "--students is required"}
	}
	students, err := config.LoadStudents(runStudents)
	if err != nil {
		return fmt.Errorf("failed to read students: %w", err)
	}

	cfg, err := buildRunConfig(mode, students)
	if err != nil {
		return err
	}
	if cfg.Password == "" && runStudents != "-" && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := promptPassword(cfg.LoginID)
		if err != nil {
			return err
		}
		cfg.Password = password
	}
	if err := config.ValidateRunConfig(cfg); err != nil {
		return err
	}

	sess, err := judge.NewSession(
		judge.WithLoginURL(runLoginURL),
		judge.WithLoginMarker(runLoginMatch),
		judge.WithTimeout(time.Duration(runTimeout)*time.Second),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	var report pipeline.Report
	var log zerolog.Logger
	useTUI := !runPlain && term.IsTerminal(int(os.Stderr.Fd()))
	if useTUI {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		err = tui.Run(os.Stderr, cancel, func(rep *tui.Reporter) error {
			var closeLog func() error
			var lerr error
			log, closeLog, lerr = logging.New(logging.Options{Level: runLogLevel, Console: rep.LogWriter(), FilePath: runLogFile})
			if lerr != nil {
				return lerr
			}
			defer closeLogger(closeLog)
			rep.Status("logging in")
			rc := pipeline.NewRunContext(runCtx, log, rep.Progress)
			defer rc.Close()
			var rerr error
			report, rerr = pipeline.Execute(rc, sess, cfg)
			return rerr
		})
	} else {
		var closeLog func() error
		log, closeLog, err = logging.New(logging.Options{Level: runLogLevel, Console: os.Stderr, FilePath: runLogFile})
		if err != nil {
			return err
		}
		defer closeLogger(closeLog)
		rc := pipeline.NewRunContext(ctx, log, tui.PlainProgress(&log, plainProgressTick, time.Now))
		defer rc.Close()
		report, err = pipeline.Execute(rc, sess, cfg)
	}

	return finishRun(cmd.OutOrStdout(), cfg, report, err, startedAt)
}

// finishRun prints and saves a finished run and records it in history.
// Cancelled runs are recorded without entries and nothing is written.
func finishRun(out io.Writer, cfg model.RunConfig, report pipeline.Report, err error, startedAt time.Time) error {
	record := model.RunRecord{
		StartedAt:    startedAt,
		EndedAt:      time.Now(),
		ListingURL:   cfg.ListingURL,
		Mode:         cfg.Mode,
		ProblemCount: len(report.Problems),
		StudentCount: len(cfg.Students),
		Status:       model.RunCompleted,
	}
	if err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			logErrf("cancelled after %d of %d students; nothing saved\n", len(report.Totals), len(cfg.Students))
			record.Status = model.RunCancelled
			recordHistory(record, nil)
		}
		return err
	}

	if err := export.RenderTable(out, report.Entries); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	savedPath, saveErr := export.Write(cfg.SavePath, report.Entries)
	record.SavePath = savedPath
	if saveErr != nil {
		record.Status = model.RunSaveFailed
	}
	recordHistory(record, report.Entries)
	if saveErr != nil {
		return saveErr
	}
	logErrf("saved %s\n", savedPath)
	return nil
}

func promptPassword(id string) (string, error) {
	if id != "" {
		logErrf("Password for %s: ", id)
	} else {
		logErrf("Password: ")
	}
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	logErrln()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

func recordHistory(record model.RunRecord, entries []model.GradedEntry) {
	if runNoHistory {
		return
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logErrf("failed to open history db: %v\n", err)
		return
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	if _, err := st.InsertRun(context.Background(), record, entries); err != nil {
		logErrf("failed to record run: %v\n", err)
	}
}

func closeLogger(closeFn func() error) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logErrf("failed to close log file: %v\n", err)
	}
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
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
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

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// applyRatioConfig keeps ratio flags as text so non-numeric input is
// reported by the ratio parser.
func applyRatioConfig(cmd *cobra.Command, name string, target *string, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = strconv.FormatFloat(*value, 'f', -1, 64)
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# ojspy configuration
# Uncomment a value to enable it. CLI flags override config values.

[judge]
# login-url = %q
# login-marker = %q
# timeout = 0             # Per-request timeout in seconds (0 = none)

[run]
# id = ""                 # Judge login id
# url = ""                # Problem listing page URL
# mode = "flat"           # flat or grouped (used when neither --flat nor --grouped is given)
# fetch = %q          # paged or table
# max-pages = %d        # Status pages per student and problem
# out = %q      # .xlsx or .csv
# history = true          # Record runs for 'ojspy history'

[grading]
# ratio = false           # Assign letter grades by cohort ratio
# a = %s
# b = %s
# c = %s
# d = %s
# f = %s

[log]
# level = %q
# file = ""               # Also append JSON logs here ("" = %s)
`,
		judge.DefaultLoginURL,
		judge.DefaultLoginMarker,
		defaultFetch,
		judge.DefaultMaxPages,
		export.DefaultPath,
		defaultRatio,
		defaultRatio,
		defaultRatio,
		defaultRatio,
		defaultRatio,
		defaultLogLevel,
		config.DefaultLogPath(),
	)
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
