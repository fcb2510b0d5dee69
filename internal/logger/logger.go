package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until Init is called
// so packages can log from tests without setup.
var Log = zap.NewNop()

// Init builds the process logger. PRISM_LOG=production switches to JSON
// output at info level; anything else gives the colored development logger.
func Init() {
	var (
		l   *zap.Logger
		err error
	)
	if os.Getenv("PRISM_LOG") == "production" {
		l, err = zap.NewProduction()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err = cfg.Build()
	}
	if err != nil {
		// Logging must never stop the renderer from starting.
		Log = zap.NewExample()
		Log.Warn("falling back to example logger", zap.Error(err))
		return
	}
	Log = l
}

// Sync flushes buffered entries. Call it once on shutdown.
func Sync() {
	_ = Log.Sync()
}
