package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/fasttext-bridge/bridge"
)

// LogLevelEnv selects the library's log level. Unset means no logging.
const LogLevelEnv = "FASTTEXT_LOG_LEVEL"

var emptyPayload = []byte("[]")

func configureLogging() {
	l, err := newLogger(os.Getenv(LogLevelEnv))
	if err != nil {
		// Unknown levels fall back to silence.
		l = zap.NewNop()
	}
	bridge.SetLogger(l)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	return cfg.Build(zap.Fields(zap.String("component", "libfasttext")))
}

// legacy maps a failed call to the bare "[]" payload of the original
// C interface. Use the Try* functions to tell the two apart.
func legacy(fn string, payload []byte, err error) []byte {
	if err != nil {
		logFailure(fn, err)
		return emptyPayload
	}
	return payload
}

func logFailure(fn string, err error) {
	bridge.Logger().Debug("call failed", zap.String("func", fn), zap.Error(err))
}
