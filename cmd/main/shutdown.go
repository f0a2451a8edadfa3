package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

// shutdownGroup stops components in parallel. A panicking stop is logged and
// counts as finished.
type shutdownGroup struct {
	wg  sync.WaitGroup
	log *zap.Logger
}

func newShutdownGroup(log *zap.Logger) *shutdownGroup {
	return &shutdownGroup{log: log}
}

// Go runs fn in its own goroutine. wg.Done is deferred inside the goroutine so
// it also runs while a panic unwinds; the panic handler only logs.
func (g *shutdownGroup) Go(name string, fn func()) {
	g.wg.Add(1)
	utils.SafeGo(func() {
		defer g.wg.Done()
		g.log.Info("[shutdown] Stopping " + name)
		start := time.Now()
		fn()
		g.log.Info("[shutdown] Stopped "+name, zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		g.log.Error("[shutdown] Panic while stopping "+name,
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
	})
}

// Wait blocks until every component stopped or ctx is done. It reports whether
// all components finished in time.
func (g *shutdownGroup) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
