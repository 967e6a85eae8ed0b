package insight

import (
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"go.uber.org/fx"
)

var Module = fx.Module("insight",
	fx.Provide(NewService),
	fx.Provide(
		fx.Annotate(
			func(s *Service) refresh.Invalidator { return s },
			fx.ResultTags(`group:"refresh.invalidators"`),
		),
	),
)
