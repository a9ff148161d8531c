package logger

import (
	"go.uber.org/zap"
)

var Log *zap.Logger

func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// WithRun tags every entry produced by the returned logger with the run id,
// so one ingestion pass can be grepped out of shared log output.
func WithRun(runID string, logger *zap.Logger) *zap.Logger {
	if runID != "" {
		return logger.With(zap.String("run_id", runID))
	}
	return logger
}
