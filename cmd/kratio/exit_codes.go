package main

import (
	"context"
	"errors"

	"kratio/internal/output"
	"kratio/internal/pipeline"
	"kratio/internal/textsource"
	"kratio/internal/watcher"
)

const (
	exitOK                = 0
	exitReadError         = 1
	exitProcessingError   = 2
	exitOutputDirectory   = 3
	exitWatchStart        = 4
	exitWatchFailed       = 5
	exitEngineUnavailable = 6
	exitUnclassified      = 99
	exitInterrupted       = 130
)

var errInterrupted = errors.New("interrupted")

// engineError marks a failure to initialize the linguistic engine.
type engineError struct{ err error }

func (e *engineError) Error() string { return "linguistic engine unavailable: " + e.err.Error() }
func (e *engineError) Unwrap() error { return e.err }

// watchStartError marks a failure before the watcher was running.
type watchStartError struct{ err error }

func (e *watchStartError) Error() string { return "start watch: " + e.err.Error() }
func (e *watchStartError) Unwrap() error { return e.err }

// watchFailedError marks a watch session that ended without being asked to.
type watchFailedError struct{ err error }

func (e *watchFailedError) Error() string { return "watch failed: " + e.err.Error() }
func (e *watchFailedError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var (
		engineErr     *engineError
		startErr      *watchStartError
		failedErr     *watchFailedError
		notFound      *watcher.PathNotFoundError
		dirErr        *output.OutputDirectoryError
		processingErr *pipeline.ProcessingError
		readErr       *textsource.ReadError
	)
	switch {
	case errors.Is(err, errInterrupted), errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &engineErr):
		return exitEngineUnavailable
	case errors.As(err, &startErr), errors.As(err, &notFound):
		return exitWatchStart
	case errors.As(err, &failedErr):
		return exitWatchFailed
	case errors.As(err, &dirErr):
		return exitOutputDirectory
	case errors.As(err, &processingErr):
		return exitProcessingError
	case errors.As(err, &readErr):
		return exitReadError
	default:
		return exitUnclassified
	}
}
