package jsonlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JSONLogger implements LoggerInstance on top of zap's sugared logger. It is
// meant for the worker where log lines are shipped to an aggregator.
type JSONLogger struct {
	logger *zap.SugaredLogger
}

// JSONLoggerParams contains configuration for creating a JSONLogger.
type JSONLoggerParams struct {
	Debug       bool
	ServiceName string
}

// NewJSONLogger builds a production zap logger writing JSON to stderr.
func NewJSONLogger(params JSONLoggerParams) (*JSONLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if params.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	base, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	if params.ServiceName != "" {
		base = base.With(zap.String("service", params.ServiceName))
	}

	return &JSONLogger{logger: base.Sugar()}, nil
}

// Log writes a message at INFO level; zap has no level-less output.
func (j *JSONLogger) Log(message string, keyvals ...any) {
	j.logger.Infow(message, keyvals...)
}

func (j *JSONLogger) Info(message string, keyvals ...any) {
	j.logger.Infow(message, keyvals...)
}

func (j *JSONLogger) Warn(message string, keyvals ...any) {
	j.logger.Warnw(message, keyvals...)
}

func (j *JSONLogger) Error(message string, keyvals ...any) {
	j.logger.Errorw(message, keyvals...)
}

func (j *JSONLogger) Debug(message string, keyvals ...any) {
	j.logger.Debugw(message, keyvals...)
}

// Fatal writes a message at FATAL level and terminates the program.
func (j *JSONLogger) Fatal(message string, keyvals ...any) {
	j.logger.Fatalw(message, keyvals...)
}

// Sync flushes buffered entries.
func (j *JSONLogger) Sync() error {
	return j.logger.Sync()
}
