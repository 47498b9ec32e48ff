// Package lifecycle coordinates cancellation and cleanup for a command run.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Coordinator owns the run context and the cleanup hooks that fire when it ends.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	shutdownWg sync.WaitGroup
	stopSignal func()
}

// New creates a Coordinator derived from parent.
func New(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		ctx:        ctx,
		cancel:     cancel,
		stopSignal: func() {},
	}
}

// Context returns the coordinator's context, cancelled on shutdown or signal.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// NotifySignals cancels the context on SIGINT or SIGTERM. A second signal
// falls through to the default handler.
func (c *Coordinator) NotifySignals() {
	ctx, stop := signal.NotifyContext(c.ctx, os.Interrupt, syscall.SIGTERM)
	c.stopSignal = stop

	go func() {
		<-ctx.Done()
		stop()
		c.cancel()
	}()
}

// OnShutdown registers a function to run concurrently during shutdown.
// Hooks should block on <-c.Context().Done() before executing cleanup.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

// Shutdown cancels the context and waits for shutdown hooks to complete
// within the given timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.stopSignal()
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
