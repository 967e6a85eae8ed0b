package pdf

import (
	"context"
	"io"
	"time"
)

// StatementData is a tabular report laid out on A4 pages. Rows must have
// the same width as Headers.
type StatementData struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Headers     []string
	Rows        [][]string
	Summary     []SummaryLine
}

type SummaryLine struct {
	Label string
	Value string
}

type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	return nil, nil
}
