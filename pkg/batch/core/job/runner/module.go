package runner

import "go.uber.org/fx"

// Module provides the SimpleJobLauncher.
var Module = fx.Options(
	fx.Provide(NewSimpleJobLauncher),
)
