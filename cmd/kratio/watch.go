package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"kratio/internal/api"
	"kratio/internal/config"
	"kratio/internal/event"
	"kratio/internal/logging"
	"kratio/internal/metrics"
	"kratio/internal/pipeline"
	"kratio/internal/textsource"
	"kratio/internal/watcher"
)

const streamBacklog = 16

type watchPlan struct {
	path         string
	settings     config.Settings
	extensions   textsource.ExtensionSet
	orchestrator *pipeline.Orchestrator
	registry     *metrics.Registry
	bus          *event.Bus[pipeline.Result]
	logger       *logging.Logger
}

// watch analyzes plan.path once, then re-analyzes on every accepted change
// until ctx ends or the watcher fails.
func (app *application) watch(ctx context.Context, plan watchPlan) error {
	if err := plan.orchestrator.Run(ctx, plan.path); err != nil {
		plan.logger.Error("initial analysis failed", map[string]string{
			"path":  plan.path,
			"error": err.Error(),
		})
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	changes := watcher.New(watcher.Options{
		Logger:     plan.logger,
		Extensions: plan.extensions,
		Debounce:   plan.settings.Debounce,
	})
	plan.registry.RegisterWatcher(changes)
	handler := watcher.HandlerFunc(plan.orchestrator.ChangeHandler(plan.path))
	if err := changes.StartContext(watchCtx, plan.path, handler); err != nil {
		var notFound *watcher.PathNotFoundError
		if errors.As(err, &notFound) {
			return err
		}
		return &watchStartError{err: err}
	}
	defer changes.Stop()
	done := changes.Done()

	var serveErr chan error
	if plan.settings.Serve != "" {
		listener, err := net.Listen("tcp", plan.settings.Serve)
		if err != nil {
			return &watchStartError{err: fmt.Errorf("listen on %s: %w", plan.settings.Serve, err)}
		}
		server := api.NewServer(api.Options{
			Bus:     plan.bus,
			Metrics: plan.registry,
			Logger:  plan.logger,
			Backlog: streamBacklog,
		})
		serveErr = make(chan error, 1)
		go func() {
			serveErr <- server.Serve(watchCtx, listener)
		}()
		defer func() {
			stopWatch()
			<-serveErr
		}()
	}

	plan.logger.Info("watching for changes", map[string]string{
		"path":       plan.path,
		"extensions": plan.extensions.String(),
		"debounce":   plan.settings.Debounce.String(),
	})
	if app.onWatching != nil {
		app.onWatching(changes)
	}

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-done:
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err := changes.Err(); err != nil {
			return &watchFailedError{err: err}
		}
		return nil
	case err := <-serveErr:
		// serveErr is consumed here, so the deferred drain must not block.
		serveErr <- nil
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if err == nil {
			err = errors.New("server stopped")
		}
		return &watchFailedError{err: fmt.Errorf("result stream: %w", err)}
	}
}
