package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/config"
	"github.com/verte-zerg/tafel/internal/logging"
	"github.com/verte-zerg/tafel/internal/model"
	"github.com/verte-zerg/tafel/internal/rewards"
	"github.com/verte-zerg/tafel/internal/scorefile"
	"github.com/verte-zerg/tafel/internal/scores"
	"github.com/verte-zerg/tafel/internal/selector"
	"github.com/verte-zerg/tafel/internal/stats"
	"github.com/verte-zerg/tafel/internal/store"
	"github.com/verte-zerg/tafel/internal/tui"
)

const memoryNotice = "Progress will not be saved after you quit."

// env holds everything a command needs, built from config and flags.
type env struct {
	cfg      config.FileConfig
	logger   *zap.Logger
	store    *store.Store
	repo     *scores.Repository
	agg      *stats.Aggregator
	sel      *selector.Selector
	settings tui.Settings
	notice   string
	memory   bool
}

func openEnv(cmd *cobra.Command) (*env, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := resolveSettings(cmd, fileCfg)
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg:      fileCfg,
		logger:   openLogger(fileCfg.Log),
		settings: settings,
	}
	if err := e.openStorage(fileCfg.Storage); err != nil {
		e.syncLogger()
		return nil, err
	}
	e.sel = selector.New(selectorWeights(fileCfg))
	e.agg = &stats.Aggregator{
		Results:   e.repo,
		FactStats: e.store,
		Profiles:  e.store,
		Logger:    e.logger,
	}
	return e, nil
}

func openLogger(cfg config.LogConfig) *zap.Logger {
	level := defaultLogLevel
	if cfg.Level != nil {
		level = *cfg.Level
	}
	path := config.DefaultLogPath()
	if cfg.File != nil && strings.TrimSpace(*cfg.File) != "" {
		path = *cfg.File
	}
	logger, err := logging.New(level, path)
	if err != nil {
		logErrf("failed to open log: %v\n", err)
		return zap.NewNop()
	}
	return logger
}

// openStorage opens the profile database and the score backend. An
// unavailable database falls back to memory so the game stays playable.
func (e *env) openStorage(cfg config.StorageConfig) error {
	backend := config.BackendSQLite
	if cfg.Backend != nil {
		backend = *cfg.Backend
	}
	path := ""
	if cfg.Path != nil {
		path = strings.TrimSpace(*cfg.Path)
	}

	dbPath := config.DefaultDBPath()
	if backend == config.BackendSQLite && path != "" {
		dbPath = path
	}
	st, err := store.Open(dbPath, store.WithLogger(e.logger))
	if err != nil {
		e.logger.Warn("database unavailable; keeping progress in memory",
			zap.String("path", dbPath), zap.Error(err))
		st, err = store.OpenMemory(store.WithLogger(e.logger))
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		e.memory = true
		e.notice = memoryNotice
	}
	e.store = st

	var results scores.Backend = st
	switch {
	case e.memory:
		results = scores.NewMemory()
	case backend == config.BackendJSON:
		filePath := config.DefaultScoreFilePath()
		if path != "" {
			filePath = path
		}
		f, err := scorefile.Open(filePath, e.logger)
		if err != nil {
			e.logger.Warn("score file unavailable; using the database",
				zap.String("path", filePath), zap.Error(err))
		} else {
			results = f
		}
	}
	e.repo = scores.NewRepository(results, e.logger)
	return nil
}

func resolveSettings(cmd *cobra.Command, fileCfg config.FileConfig) (tui.Settings, error) {
	applyTablesConfig(cmd, "practice", &practiceTables, fileCfg.Practice.Tables)
	applyTablesConfig(cmd, "test", &testTables, fileCfg.Test.Tables)
	applyIntConfig(cmd, "questions", &testQuestions, fileCfg.Test.Questions)
	applyStringConfig(cmd, "speed", &testSpeed, fileCfg.Test.Speed)
	applyStringConfig(cmd, "metric", &progressMetric, fileCfg.Progress.Metric)
	applyIntConfig(cmd, "curve-window", &progressWindow, fileCfg.Progress.CurveWindow)
	applyIntConfig(cmd, "top", &progressTop, fileCfg.Progress.Top)

	if testQuestions <= 0 {
		return tui.Settings{}, fmt.Errorf("--questions must be > 0")
	}
	if _, ok := rewards.LookupSpeed(testSpeed); !ok {
		return tui.Settings{}, fmt.Errorf("unknown speed %q (want %s)", testSpeed, speedNames())
	}
	if progressWindow < 1 {
		return tui.Settings{}, fmt.Errorf("--curve-window must be >= 1")
	}
	if progressTop < 0 {
		return tui.Settings{}, fmt.Errorf("--top must be >= 0")
	}
	metric, err := stats.ParseMetric(progressMetric)
	if err != nil {
		return tui.Settings{}, err
	}
	return tui.Settings{
		PracticeTables: append([]int(nil), practiceTables...),
		TestTables:     append([]int(nil), testTables...),
		Questions:      testQuestions,
		Speed:          strings.ToLower(strings.TrimSpace(testSpeed)),
		CurveWindow:    progressWindow,
		TopTables:      progressTop,
		Metric:         metric,
	}, nil
}

func selectorWeights(fileCfg config.FileConfig) selector.Weights {
	w := selector.Weights{RecentSize: defaultRecentSize}
	sc := fileCfg.Selector
	applyFloatConfig(&w.Base, sc.BaseWeight)
	applyFloatConfig(&w.MinWeight, sc.MinWeight)
	applyFloatConfig(&w.SlowRatio, sc.SlowRatio)
	applyFloatConfig(&w.SlowBoost, sc.SlowBoost)
	applyFloatConfig(&w.RecentDamping, sc.RecentDamping)
	if sc.MaxFactor != nil {
		w.MaxFactor = *sc.MaxFactor
	}
	if fileCfg.Practice.RecentSize != nil {
		w.RecentSize = *fileCfg.Practice.RecentSize
	}
	return w
}

// app builds the screen context with the resolved player, if any.
func (e *env) app(ctx context.Context) *tui.App {
	app := &tui.App{
		Store:    e.store,
		Scores:   e.repo,
		Stats:    e.agg,
		Selector: e.sel,
		Scorer:   rewards.Default,
		Logger:   e.logger,
		Settings: e.settings,
	}
	if p, ok := e.resolveProfile(ctx); ok {
		app.Profile = p
	}
	if e.notice != "" {
		app.SetNotice("%s", e.notice)
	}
	return app
}

// resolveProfile picks the --profile player, the configured default, or the
// only existing player.
func (e *env) resolveProfile(ctx context.Context) (model.Profile, bool) {
	key := strings.TrimSpace(profileKey)
	if key == "" && e.cfg.Profile.Default != nil {
		key = strings.TrimSpace(*e.cfg.Profile.Default)
	}
	if key != "" {
		p, err := e.store.FindProfile(ctx, key)
		if err == nil {
			return p, true
		}
		logErrf("player %q not found\n", key)
		e.logger.Info("profile lookup failed", zap.String("key", key), zap.Error(err))
	}
	profiles, err := e.store.ListProfiles(ctx)
	if err != nil {
		e.logger.Warn("failed to list profiles", zap.Error(err))
		return model.Profile{}, false
	}
	if len(profiles) == 1 {
		return profiles[0], true
	}
	return model.Profile{}, false
}

func (e *env) Close() {
	if cerr := e.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
	e.syncLogger()
}

func (e *env) syncLogger() {
	if err := e.logger.Sync(); err != nil {
		// Best-effort flush; syncing stderr fails on some terminals.
		_ = err
	}
}
