package logger

import "go.uber.org/fx"

// Module routes fx container events through this package.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
