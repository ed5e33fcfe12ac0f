package handlers

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"trendcatch/internal/logger"
)

// observeErrors captures error logs for the duration of the test
func observeErrors(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.ErrorLevel)
	t.Cleanup(logger.Set(zap.New(core)))
	return logs
}
