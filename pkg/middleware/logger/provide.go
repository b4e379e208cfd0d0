package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(ProvideLoggerMiddleware, ProvideLogger),
)

func ProvideLoggerMiddleware() *Middleware { return &Middleware{} }
func ProvideLogger() *zap.Logger           { return NewLog("system.log") }
