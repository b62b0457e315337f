package deferred

import (
	"io"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// logger holds the package-level structured logger, defaulting to a
// discard-writer logiface/stumpy logger so calls are always safe without a
// nil check, but produce no output until SetLogger is used.
var logger atomic.Pointer[logiface.Logger[*stumpy.Event]]

func init() {
	logger.Store(newDiscardLogger())
}

func newDiscardLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(io.Discard)))
}

// SetLogger installs the structured logger used for scheduling diagnostics,
// failed (returned-error or panicking) callbacks, and rejected self-adoption.
// Work items dropped by a shut-down Pool are not logged. A nil logger
// restores the default discard logger.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	if l == nil {
		l = newDiscardLogger()
	}
	logger.Store(l)
}

func log() *logiface.Logger[*stumpy.Event] {
	return logger.Load()
}
