package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/ftclutch/internal/config"
	"github.com/verte-zerg/ftclutch/internal/dataset"
	"github.com/verte-zerg/ftclutch/internal/model"
	"github.com/verte-zerg/ftclutch/internal/shots"
	"github.com/verte-zerg/ftclutch/internal/telemetry"
	"github.com/verte-zerg/ftclutch/internal/winprob"
)

// settings is the resolved configuration: flags over environment over the
// config file over built-in defaults.
type settings struct {
	dbPath   string
	repo     string
	filename string
	revision string
	params   model.EstimatorParams
	analysis model.AnalysisConfig
	logLevel string
	logFile  string
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}

	s := settings{
		dbPath:   flagDB,
		repo:     dataset.DefaultRepo,
		filename: dataset.DefaultFilename,
		params: model.EstimatorParams{
			Trials:               flagTrials,
			SecondsPerPossession: winprob.SecondsPerPossession,
			PointsPerPossession:  winprob.PointsPerPossession,
			Method:               flagMethod,
			CacheSize:            defaultCacheSize,
			Seed:                 flagSeed,
		},
		analysis: model.AnalysisConfig{
			ClutchThreshold: shots.ClutchThreshold,
		},
		logLevel: flagLogLevel,
	}

	if !cmd.Flags().Changed("db") {
		if env := config.DatasetPathFromEnv(); env != "" {
			s.dbPath = env
		} else {
			applyString(&s.dbPath, fileCfg.Data.DB)
		}
	}
	if s.dbPath == "" {
		s.dbPath = config.DefaultDatasetPath()
	}
	applyString(&s.repo, fileCfg.Data.Repo)
	applyString(&s.filename, fileCfg.Data.Filename)
	applyString(&s.revision, fileCfg.Data.Revision)

	applyIntConfig(cmd, "trials", &s.params.Trials, fileCfg.Estimator.Trials)
	applyUintConfig(cmd, "seed", &s.params.Seed, fileCfg.Estimator.Seed)
	applyStringConfig(cmd, "method", &s.params.Method, fileCfg.Estimator.Method)
	applyInt(&s.params.SecondsPerPossession, fileCfg.Estimator.SecondsPerPossession)
	applyFloat(&s.params.PointsPerPossession, fileCfg.Estimator.PointsPerPossession)
	applyInt(&s.params.CacheSize, fileCfg.Estimator.CacheSize)

	applyFloat(&s.analysis.ClutchThreshold, fileCfg.Analysis.ClutchThreshold)
	applyInt(&s.analysis.MaxShots, fileCfg.Analysis.MaxShots)
	applyInt(&s.analysis.MemoSize, fileCfg.Analysis.MemoSize)

	applyStringConfig(cmd, "log-level", &s.logLevel, fileCfg.Log.Level)
	applyString(&s.logFile, fileCfg.Log.File)

	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func validateSettings(s settings) error {
	if s.params.Trials <= 0 {
		return fmt.Errorf("--trials must be > 0")
	}
	if s.params.SecondsPerPossession <= 0 {
		return fmt.Errorf("seconds-per-possession must be > 0")
	}
	if s.params.PointsPerPossession <= 0 {
		return fmt.Errorf("points-per-possession must be > 0")
	}
	if _, err := winprob.ParseMethod(s.params.Method); err != nil {
		return err
	}
	if s.params.CacheSize < 0 {
		return fmt.Errorf("cache-size must be >= 0")
	}
	if s.analysis.ClutchThreshold < 0 || s.analysis.ClutchThreshold > 1 {
		return fmt.Errorf("clutch-threshold must be between 0 and 1")
	}
	if s.analysis.MaxShots < 0 {
		return fmt.Errorf("max-shots must be >= 0")
	}
	return nil
}

// initLogging installs the process logger. While the TUI owns the terminal
// logs go to the configured file, or nowhere.
func initLogging(s settings, tui bool) error {
	level := telemetry.ParseLevel(s.logLevel)
	switch {
	case s.logFile != "":
		return telemetry.InitFile(s.logFile, level)
	case tui:
		telemetry.Init(io.Discard, level)
	default:
		telemetry.Init(os.Stderr, level)
	}
	return nil
}

func logLevelNames() string {
	return fmt.Sprintf("%s, %s, %s or %s", slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError)
}

func applyString(target, value *string) {
	if value != nil {
		*target = *value
	}
}

func applyInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func applyFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
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

func applyUintConfig(cmd *cobra.Command, name string, target, value *uint64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# ftclutch configuration
# Uncomment a value to enable it. CLI flags override config values.

[data]
# db = %q
# repo = %q
# filename = %q
# revision = "main"

[estimator]
# trials = %d                  # Monte Carlo trials per estimate
# seconds-per-possession = %d
# points-per-possession = %.2f
# method = "aggregate"           # or "possession"
# cache-size = %d
# seed = 0                       # 0 seeds from the clock

[analysis]
# clutch-threshold = %.2f      # leverage above this counts as clutch
# max-shots = 0                  # 0 evaluates every shot
# memo-size = 64

[log]
# level = "info"                 # %s
# file = ""
`,
		config.DefaultDatasetPath(),
		dataset.DefaultRepo,
		dataset.DefaultFilename,
		winprob.DefaultTrials,
		winprob.SecondsPerPossession,
		winprob.PointsPerPossession,
		defaultCacheSize,
		shots.ClutchThreshold,
		logLevelNames(),
	)
}
