package main

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"kratio/internal/logging"
)

func TestShutdownSignalsCancelOnce(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	calls := make(chan error, 4)
	signalCh := make(chan os.Signal, 2)

	stop := watchShutdownSignals(logging.Discard(), func(cause error) {
		calls <- cause
		cancel(cause)
	}, signalCh)
	defer stop()

	signalCh <- os.Interrupt
	signalCh <- os.Interrupt

	select {
	case cause := <-calls:
		if !errors.Is(cause, errInterrupted) {
			t.Fatalf("expected interrupt cause, got %v", cause)
		}
	case <-time.After(time.Second):
		t.Fatal("expected cancel on first signal")
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected context cancellation")
	}
	select {
	case cause := <-calls:
		t.Fatalf("unexpected second cancel: %v", cause)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestShutdownSignalsNilChannel(t *testing.T) {
	stop := watchShutdownSignals(logging.Discard(), nil, nil)
	stop()
}
