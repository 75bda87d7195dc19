package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"kratio/internal/analysis"
	"kratio/internal/config"
	"kratio/internal/event"
	"kratio/internal/logging"
	"kratio/internal/metrics"
	"kratio/internal/nlp"
	"kratio/internal/output"
	"kratio/internal/pipeline"
	"kratio/internal/textsource"
	"kratio/internal/watcher"
)

const resultHistorySize = 32

// application holds the process dependencies a test can replace.
type application struct {
	stdout       io.Writer
	stderr       io.Writer
	lookupEnv    func(string) (string, bool)
	newAnnotator func() (nlp.Annotator, error)
	// signals replaces OS signal delivery when set.
	signals <-chan os.Signal
	// onWatching is called once watch mode is running.
	onWatching func(*watcher.Watcher)
}

func newApplication(stdout, stderr io.Writer) *application {
	return &application{
		stdout:    stdout,
		stderr:    stderr,
		lookupEnv: os.LookupEnv,
		newAnnotator: func() (nlp.Annotator, error) {
			return nlp.NewEngine(nlp.EngineOptions{})
		},
	}
}

func (app *application) execute(parent context.Context, settings config.Settings, path string) error {
	logger := app.newLogger(settings)
	defer func() {
		_ = logger.Close()
	}()
	logger.Debug("settings resolved", settingsFields(settings))

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)
	stopSignals := app.watchSignals(logger, cancel)
	defer stopSignals()

	err := app.analyze(ctx, logger, settings, path)
	if err != nil && errors.Is(context.Cause(ctx), errInterrupted) {
		return errInterrupted
	}
	return err
}

func (app *application) analyze(ctx context.Context, logger *logging.Logger, settings config.Settings, path string) error {
	kind, err := analysis.ParseKind(settings.AnalysisType)
	if err != nil {
		return err
	}

	done := logger.Timed("loading linguistic engine", nil)
	annotator, err := app.newAnnotator()
	done()
	if err != nil {
		logger.Error("linguistic engine unavailable", map[string]string{"error": err.Error()})
		return &engineError{err: err}
	}
	analyzer, err := analysis.New(kind, annotator, logger)
	if err != nil {
		return err
	}
	analyzer, err = analysis.NewCached(analyzer, settings.CacheSize)
	if err != nil {
		return err
	}

	format := output.DefaultFormat(app.stdout)
	if settings.Format != "" {
		if format, err = output.ParseFormat(settings.Format); err != nil {
			return err
		}
	}

	registry := metrics.NewRegistry()
	bus := event.NewBus[pipeline.Result](ctx, event.BusOptions{
		Name:        "results",
		HistorySize: resultHistorySize,
		Recorder:    registry,
		Logger:      logger,
	})
	defer bus.Close()

	extensions := textsource.NewExtensionSet(settings.Extensions...)
	orchestrator, err := pipeline.New(pipeline.Options{
		Analyzer:    analyzer,
		Extensions:  extensions,
		Renderer:    &output.Renderer{Out: app.stdout, Format: format, TopN: settings.TopN},
		Out:         app.stdout,
		Plotter:     output.Plotter{TopN: settings.TopN},
		OutputPath:  settings.Output,
		PlotPath:    settings.SavePlot,
		DisablePlot: settings.NoVisualization,
		Workers:     settings.Workers,
		Logger:      logger,
		Metrics:     registry,
		Bus:         bus,
	})
	if err != nil {
		return err
	}

	if settings.Serve != "" && !settings.Watch {
		logger.Warn("result stream requires watch mode; ignoring serve address", map[string]string{
			"serve": settings.Serve,
		})
	}
	if settings.Watch {
		return app.watch(ctx, watchPlan{
			path:         path,
			settings:     settings,
			extensions:   extensions,
			orchestrator: orchestrator,
			registry:     registry,
			bus:          bus,
			logger:       logger,
		})
	}
	return orchestrator.Run(ctx, path)
}

func (app *application) newLogger(settings config.Settings) *logging.Logger {
	level := logging.LevelInfo
	if settings.Debug {
		level = logging.LevelDebug
	}
	var console io.Writer = app.stderr
	if settings.Silent {
		console = nil
	}
	return logging.New(logging.Options{
		Level:   level,
		Console: console,
		File:    settings.LogFile,
	})
}

func (app *application) watchSignals(logger *logging.Logger, cancel context.CancelCauseFunc) func() {
	if app.signals != nil {
		return watchShutdownSignals(logger, cancel, app.signals)
	}
	notify := make(chan os.Signal, 2)
	signal.Notify(notify, os.Interrupt, syscall.SIGTERM)
	stop := watchShutdownSignals(logger, cancel, notify)
	return func() {
		signal.Stop(notify)
		stop()
	}
}
