package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestGenerateStatementProducesPDF(t *testing.T) {
	p := New()
	r, err := p.GenerateStatement(context.Background(), StatementData{
		Title:       "Monthly revenue",
		Subtitle:    "All months with payments",
		GeneratedAt: time.Date(2024, 6, 30, 2, 0, 0, 0, time.UTC),
		Headers:     []string{"Month", "Revenue", "Transactions"},
		Rows: [][]string{
			{"2024-05", "100.00", "1"},
			{"2024-06", "0.00", "0"},
		},
		Summary: []SummaryLine{{Label: "Total", Value: "100.00"}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read statement: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatalf("expected pdf header, got %q", body[:min(len(body), 8)])
	}
}

func TestGenerateStatementRejectsRaggedRows(t *testing.T) {
	_, err := New().GenerateStatement(context.Background(), StatementData{
		Headers: []string{"A", "B"},
		Rows:    [][]string{{"only one"}},
	})
	if !errors.Is(err, ErrRowWidth) {
		t.Fatalf("expected ErrRowWidth, got %v", err)
	}
}

func TestGenerateStatementRequiresColumns(t *testing.T) {
	_, err := New().GenerateStatement(context.Background(), StatementData{Title: "empty"})
	if !errors.Is(err, ErrNoColumns) {
		t.Fatalf("expected ErrNoColumns, got %v", err)
	}
}

func TestColumnSpansFillGrid(t *testing.T) {
	for n := 1; n <= gridColumns; n++ {
		total := 0
		for _, s := range columnSpans(n) {
			if s < 1 {
				t.Fatalf("n=%d: expected positive span, got %d", n, s)
			}
			total += s
		}
		if total != gridColumns {
			t.Fatalf("n=%d: expected spans to sum to %d, got %d", n, gridColumns, total)
		}
	}
}
