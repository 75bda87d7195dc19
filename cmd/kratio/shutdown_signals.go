package main

import (
	"context"
	"os"
	"sync"

	"kratio/internal/logging"
)

// watchShutdownSignals cancels with errInterrupted on the first signal and
// logs the second; later signals are ignored silently. The returned func
// stops the goroutine.
func watchShutdownSignals(logger *logging.Logger, cancel context.CancelCauseFunc, signalCh <-chan os.Signal) func() {
	if signalCh == nil {
		return func() {}
	}

	stop := make(chan struct{})
	go func() {
		received := 0
		for {
			select {
			case <-stop:
				return
			case sig, ok := <-signalCh:
				if !ok {
					return
				}
				received++
				fields := map[string]string{}
				if sig != nil {
					fields["signal"] = sig.String()
				}
				switch received {
				case 1:
					logger.Info("shutdown signal received", fields)
					if cancel != nil {
						cancel(errInterrupted)
					}
				case 2:
					logger.Info("shutdown already in progress; ignoring signal", fields)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}
