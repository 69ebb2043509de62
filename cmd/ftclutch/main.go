// Package main provides the CLI entrypoint for ftclutch.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/ftclutch/internal/analysis"
	"github.com/verte-zerg/ftclutch/internal/config"
	"github.com/verte-zerg/ftclutch/internal/dataset"
	"github.com/verte-zerg/ftclutch/internal/metrics"
	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/nbadb"
	"github.com/verte-zerg/ftclutch/internal/stats"
	"github.com/verte-zerg/ftclutch/internal/statsui"
	"github.com/verte-zerg/ftclutch/internal/store"
	"github.com/verte-zerg/ftclutch/internal/telemetry"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

const (
	defaultCacheSize    = 4096
	defaultHistoryLast  = 20
	defaultReportLast   = 5
	defaultCurveHeight  = 12
	defaultCurveSeconds = 300
	defaultCurveStep    = 10
)

var defaultCurveMargins = []int{-3, -1, 0, 1, 3}

var (
	flagDB       string
	flagTrials   int
	flagSeed     uint64
	flagMethod   string
	flagLogLevel string

	rootPlayer      string
	rootMetricsAddr string

	analyzeShots   int
	analyzeCurves  bool
	analyzeHistory int

	playersSearch string

	fetchForce bool

	wpMargin  int
	wpSeconds int

	historySince string
	historyLast  int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if cerr := telemetry.Close(); cerr != nil {
		_ = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ftclutch",
		Short:         "Pressure-adjusted free-throw shooting",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			return nil
		},
		RunE: runBrowseCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "path to the NBA SQLite dataset")
	pf.IntVar(&flagTrials, "trials", winprob.DefaultTrials, "Monte Carlo trials per estimate")
	pf.Uint64Var(&flagSeed, "seed", 0, "random seed (0 seeds from the clock)")
	pf.StringVar(&flagMethod, "method", string(winprob.MethodAggregate), "simulation method: aggregate or possession")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level: "+logLevelNames())

	rootCmd.Flags().StringVar(&rootPlayer, "player", "", "player to open on start")
	rootCmd.Flags().StringVar(&rootMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newPlayersCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newWPCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runBrowseCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(s, true); err != nil {
		return err
	}
	ctx := cmd.Context()

	var mgr *metrics.Manager
	if rootMetricsAddr != "" {
		mgr = metrics.NewManager()
		shutdown, err := serveMetrics(rootMetricsAddr, mgr.Handler())
		if err != nil {
			return err
		}
		defer shutdown()
	}

	sess, err := openSession(s, mgr)
	if err != nil {
		return err
	}
	defer sess.close()

	var hist stats.History
	if sess.store != nil {
		hist = sess.store
	}
	browser := statsui.NewModel(sess.svc, hist, statsui.Options{
		Player:  strings.TrimSpace(rootPlayer),
		Margins: defaultCurveMargins,
		Seconds: winprob.SecondsGrid(defaultCurveSeconds, defaultCurveStep),
	})
	program := tea.NewProgram(browser, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <player>",
		Short: "Print a free-throw report for one player",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyzeCmd,
	}
	cmd.Flags().IntVar(&analyzeShots, "shots", 0, "show the N highest-leverage free throws (0 hides the table)")
	cmd.Flags().BoolVar(&analyzeCurves, "curves", false, "plot leverage against time remaining")
	cmd.Flags().IntVar(&analyzeHistory, "history", defaultReportLast, "show the N most recent stored snapshots")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(s, false); err != nil {
		return err
	}
	if analyzeShots < 0 {
		return fmt.Errorf("--shots must be >= 0")
	}

	sess, err := openSession(s, nil)
	if err != nil {
		return err
	}
	defer sess.close()

	var hist stats.History
	if sess.store != nil {
		hist = sess.store
	}
	player := strings.TrimSpace(strings.Join(args, " "))
	report, err := stats.BuildReport(cmd.Context(), sess.svc, hist, stats.ReportConfig{
		Player:       player,
		HistoryLimit: analyzeHistory,
	}, analysis.ErrNoData)
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), stats.RenderOptions{
		ShotLimit:  analyzeShots,
		ShowShots:  analyzeShots > 0,
		ShowCurves: analyzeCurves,
		Curves: stats.CurveOptions{
			Prober:  sess.svc.Prober(),
			Margins: defaultCurveMargins,
			Seconds: winprob.SecondsGrid(defaultCurveSeconds, defaultCurveStep),
			Height:  defaultCurveHeight,
		},
	})
}

func newPlayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "List player names in the dataset",
		Args:  cobra.NoArgs,
		RunE:  runPlayersCmd,
	}
	cmd.Flags().StringVar(&playersSearch, "search", "", "only names containing this text (case-insensitive)")
	return cmd
}

func runPlayersCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(s, false); err != nil {
		return err
	}
	src, err := openSource(s.dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			telemetry.Warnf("failed to close dataset: %v", cerr)
		}
	}()

	var names []string
	if q := strings.TrimSpace(playersSearch); q != "" {
		names, err = src.SearchPlayers(cmd.Context(), q)
	} else {
		names, err = src.Players(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	if len(names) == 0 {
		logErrln("No matching players.")
		return nil
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the NBA SQLite dataset",
		Args:  cobra.NoArgs,
		RunE:  runFetchCmd,
	}
	cmd.Flags().BoolVar(&fetchForce, "force", false, "download even if the dataset already exists")
	return cmd
}

func runFetchCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(s, false); err != nil {
		return err
	}
	logErrf("Fetching %s from %s...\n", s.filename, s.repo)
	file, err := dataset.Fetch(cmd.Context(), dataset.Options{
		Repo:     s.repo,
		Filename: s.filename,
		Revision: s.revision,
		Token:    config.Token(),
		Dest:     s.dbPath,
		Force:    fetchForce,
	})
	if err != nil {
		return fmt.Errorf("failed to download dataset: %w", err)
	}
	if file.Cached {
		logErrf("Using existing dataset %s (use --force to download again)\n", file.Path)
		return nil
	}
	logErrf("Downloaded %s revision %s (%s)\n", file.Path, shortRevision(file.Revision), humanize.IBytes(uint64(file.Size)))
	return nil
}

func newWPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wp",
		Short: "Estimate win probability and free-throw leverage for one game state",
		Args:  cobra.NoArgs,
		RunE:  runWPCmd,
	}
	cmd.Flags().IntVar(&wpMargin, "margin", 0, "shooting team's lead before the free throw")
	cmd.Flags().IntVar(&wpSeconds, "seconds", 60, "seconds remaining in the period")
	return cmd
}

func runWPCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(s, false); err != nil {
		return err
	}
	if wpSeconds < 0 {
		return fmt.Errorf("--seconds must be >= 0")
	}
	method, err := winprob.ParseMethod(s.params.Method)
	if err != nil {
		return err
	}
	est := winprob.NewEstimator(winprob.Params{
		Trials:               s.params.Trials,
		SecondsPerPossession: s.params.SecondsPerPossession,
		PointsPerPossession:  s.params.PointsPerPossession,
		Method:               method,
	}, s.params.Seed)
	return writeWP(cmd, est, wpMargin, wpSeconds)
}

func writeWP(cmd *cobra.Command, est *winprob.Estimator, margin, seconds int) error {
	p := est.Params()
	wp := est.WinProbability(margin, seconds)
	lev := est.Leverage(margin, seconds)
	lines := []string{
		fmt.Sprintf("State:           margin %+d, %s left (%d possessions each)", margin, stats.FormatClock(seconds), winprob.Possessions(seconds, p.SecondsPerPossession)),
		fmt.Sprintf("Simulation:      %d trials, %s method", p.Trials, p.Method),
		fmt.Sprintf("Win probability: %.3f", wp),
		fmt.Sprintf("Free throw:      make %.3f, miss %.3f", lev.WinProbabilityIfMake, lev.WinProbabilityIfMiss),
		fmt.Sprintf("Leverage:        %.3f (weight %.3f)", lev.Leverage, lev.Weight),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [player]",
		Short: "Show stored summary snapshots",
		Args:  cobra.ArbitraryArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", defaultHistoryLast, "limit to the last N snapshots")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(s, false); err != nil {
		return err
	}
	filter := model.HistoryFilter{
		Player: strings.TrimSpace(strings.Join(args, " ")),
		Limit:  historyLast,
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	snaps, err := st.ListSnapshots(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to load snapshots: %w", err)
	}
	return stats.RenderHistory(cmd.OutOrStdout(), snaps)
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
	if err := ensureConfigFile(path); err != nil {
		return err
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

func ensureConfigFile(path string) error {
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
	return nil
}

// session bundles the handles a query command needs.
type session struct {
	source *nbadb.Source
	store  *store.Store
	svc    *analysis.Service
}

// openSession opens the dataset, the snapshot store and the analysis service. An
// unavailable snapshot store is logged and skipped.
func openSession(s settings, mgr *metrics.Manager) (*session, error) {
	src, err := openSource(s.dbPath)
	if err != nil {
		return nil, err
	}
	e := &session{source: src}

	opts := []analysis.Option{}
	if st, err := store.Open(config.DefaultDBPath()); err != nil {
		telemetry.Warnf("snapshots disabled: %v", err)
	} else {
		e.store = st
		opts = append(opts, analysis.WithSnapshots(st))
	}
	if mgr != nil {
		opts = append(opts, analysis.WithMetrics(mgr))
	}

	svc, err := analysis.New(src, s.params, s.analysis, opts...)
	if err != nil {
		e.close()
		return nil, err
	}
	e.svc = svc
	return e, nil
}

func (e *session) close() {
	if e.store != nil {
		if cerr := e.store.Close(); cerr != nil {
			telemetry.Warnf("failed to close db: %v", cerr)
		}
	}
	if cerr := e.source.Close(); cerr != nil {
		telemetry.Warnf("failed to close dataset: %v", cerr)
	}
}

func openSource(path string) (*nbadb.Source, error) {
	src, err := nbadb.Open(path)
	if err != nil {
		if errors.Is(err, nbadb.ErrMissing) {
			return nil, fmt.Errorf("%w\nexpected dataset at: %s", err, path)
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	return src, nil
}

// serveMetrics exposes h on addr under /metrics until the returned function
// is called.
func serveMetrics(addr string, h http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Errorf("metrics server stopped: %v", err)
		}
	}()
	telemetry.Infof("serving metrics on http://%s/metrics", ln.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			telemetry.Warnf("metrics server shutdown: %v", err)
		}
	}, nil
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	if rev == "" {
		return "unknown"
	}
	return rev
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
