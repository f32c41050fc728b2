package app

import (
	"github.com/robfig/cron/v3"

	"github.com/deusflow/newsdigest/internal/logger"
)

var _ cron.Logger = cronLogger{}

// cronLogger routes cron's own messages into the structured logger. Its
// per-tick info lines only show up with DEBUG=true.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
