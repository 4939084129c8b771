package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/copernet/chainstate/log"
)

// interruptSignals defines the signals that stop a running command.
var interruptSignals = []os.Signal{os.Interrupt}

// interruptContext returns a context that is cancelled when an interrupt
// signal arrives. A second signal is left to the default handler.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, interruptSignals...)
	go func() {
		select {
		case sig := <-interruptChannel:
			log.Info("Received signal (%s).  shutting down...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interruptChannel)
	}()
	return ctx, cancel
}
