package utils

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

// RecoverFn is a function that handles a recovered panic
type RecoverFn func(r interface{}, stack []byte)

// SafeGo executes the given function in a goroutine with panic recovery
func SafeGo(fn func(), onPanic RecoverFn) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				if onPanic != nil {
					onPanic(r, stack)
					return
				}
				if logger.Log != nil {
					logger.Log.Error("[panic] Recovered from panic in goroutine",
						zap.Any("panic", r),
						zap.ByteString("stack", stack),
					)
					return
				}
				fmt.Fprintf(os.Stderr, "[PANIC] Recovered from panic in goroutine: %v\n%s\n", r, stack)
			}
		}()
		fn()
	}()
}

// RecoverWithLog recovers a panic in the calling goroutine and logs it with the
// context logger. It must be deferred directly.
func RecoverWithLog(ctx context.Context, operation string) {
	if r := recover(); r != nil {
		logger.FromContext(ctx).Error(fmt.Sprintf("[panic] Recovered from panic during %s", operation),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()),
		)
	}
}
