package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Dir is where NewLog places its rotated files.
var Dir = "log"

// NewLog tees JSON entries to stdout and a rotated file under Dir.
func NewLog(n string) *zap.Logger {
	_ = os.MkdirAll(Dir, 0o755)

	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = zapcore.OmitKey

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(Dir, n),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(os.Stdout), zap.InfoLevel),
	)
	return zap.New(core)
}

var (
	accessMu  sync.Mutex
	accessLog *zap.Logger
)

func accessLogger() *zap.Logger {
	accessMu.Lock()
	defer accessMu.Unlock()
	if accessLog == nil {
		accessLog = NewLog("http-access.log")
	}
	return accessLog
}

// SetAccessLogger overrides the access logger (tests, CLIs).
func SetAccessLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	accessMu.Lock()
	accessLog = l
	accessMu.Unlock()
}
