package risk

import "go.uber.org/fx"

var Module = fx.Module("risk",
	fx.Provide(NewService),
)
