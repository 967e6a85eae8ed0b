package report

import (
	"github.com/smallbiznis/telcopulse/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("report",
	pdf.Module,
	fx.Provide(NewRenderer),
)
