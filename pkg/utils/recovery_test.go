package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

// setupTestLogger swaps in a test logger and returns a function restoring the original.
func setupTestLogger(t *testing.T) func() {
	originalLogger := logger.Log
	logger.Log = zaptest.NewLogger(t)
	return func() {
		logger.Log = originalLogger
	}
}

func TestSafeGo_Runs(t *testing.T) {
	defer setupTestLogger(t)()

	done := make(chan struct{})
	SafeGo(func() { close(done) }, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function did not execute in time")
	}
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	defer setupTestLogger(t)()

	var (
		wg        sync.WaitGroup
		recovered interface{}
	)
	wg.Add(1)
	SafeGo(func() {
		panic("test panic")
	}, func(r interface{}, stack []byte) {
		defer wg.Done()
		recovered = r
		assert.NotEmpty(t, stack)
	})

	wg.Wait()
	assert.Equal(t, "test panic", recovered)
}

func TestRecoverWithLog(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))

	require.NotPanics(t, func() {
		defer RecoverWithLog(ctx, "seed lead")
		panic("boom")
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "[panic] Recovered from panic during seed lead", entries[0].Message)
}
