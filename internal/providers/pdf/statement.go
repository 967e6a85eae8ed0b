package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const gridColumns = 12

var (
	ErrNoColumns   = errors.New("statement_no_columns")
	ErrTooManyCols = errors.New("statement_too_many_columns")
	ErrRowWidth    = errors.New("statement_row_width_mismatch")
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(gridColumns, data.Title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	generated := data.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	m.AddRow(10,
		col.New(8).Add(
			text.New(data.Subtitle, props.Text{Size: 10}),
		),
		text.NewCol(4, "Generated "+generated.UTC().Format(time.RFC3339), props.Text{
			Size:  8,
			Align: align.Right,
		}),
	)

	spans := columnSpans(len(data.Headers))

	m.AddRow(8, cells(data.Headers, spans, props.Text{Style: fontstyle.Bold, Size: 9})...)
	m.AddRow(1, line.NewCol(gridColumns))

	for i, row := range data.Rows {
		if i%50 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		m.AddRow(7, cells(row, spans, props.Text{Size: 8})...)
	}

	if len(data.Summary) > 0 {
		m.AddRow(4)
		m.AddRow(1, line.NewCol(gridColumns))
		for _, s := range data.Summary {
			m.AddRow(7,
				col.New(6),
				text.NewCol(3, s.Label, props.Text{Size: 9, Style: fontstyle.Bold}),
				text.NewCol(3, s.Value, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate statement: %w", err)
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func validate(data StatementData) error {
	switch {
	case len(data.Headers) == 0:
		return ErrNoColumns
	case len(data.Headers) > gridColumns:
		return ErrTooManyCols
	}
	for i, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrRowWidth, i, len(row), len(data.Headers))
		}
	}
	return nil
}

// columnSpans splits the 12-column grid across n columns, giving the
// remainder to the leading columns.
func columnSpans(n int) []int {
	spans := make([]int, n)
	base, extra := gridColumns/n, gridColumns%n
	for i := range spans {
		spans[i] = base
		if i < extra {
			spans[i]++
		}
	}
	return spans
}

func cells(values []string, spans []int, style props.Text) []core.Col {
	out := make([]core.Col, len(values))
	for i, v := range values {
		out[i] = text.NewCol(spans[i], v, style)
	}
	return out
}
