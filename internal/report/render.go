package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/smallbiznis/telcopulse/internal/providers/pdf"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatMarkdown, FormatPDF}

var ErrPDFUnavailable = errors.New("pdf_unavailable")

func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	if f == "markdown" {
		return FormatMarkdown, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// Binary reports whether the format should not be written to a terminal.
func (f Format) Binary() bool { return f == FormatPDF }

func (f Format) Extension() string {
	switch f {
	case FormatTable:
		return "txt"
	default:
		return string(f)
	}
}

type Renderer struct {
	pdf pdf.Provider
}

func NewRenderer(p pdf.Provider) *Renderer {
	if p == nil {
		p = &pdf.NoOpProvider{}
	}
	return &Renderer{pdf: p}
}

func (r *Renderer) Render(ctx context.Context, w io.Writer, ds Dataset, format Format) error {
	switch format {
	case FormatTable:
		return renderTable(w, ds)
	case FormatCSV:
		t := newWriter(w, ds)
		t.RenderCSV()
		return nil
	case FormatMarkdown:
		t := newWriter(w, ds)
		t.RenderMarkdown()
		return nil
	case FormatJSON:
		return renderJSON(w, ds)
	case FormatPDF:
		return r.renderPDF(ctx, w, ds)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func newWriter(w io.Writer, ds Dataset) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(ds.Headers))
	for i, h := range ds.Headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, cells := range ds.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}
	return t
}

func renderTable(w io.Writer, ds Dataset) error {
	t := newWriter(w, ds)
	t.SetTitle(ds.Title)
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(ds.Rows))
	for _, s := range ds.Summary {
		_, _ = fmt.Fprintf(w, "%s: %s\n", s.Label, s.Value)
	}
	return nil
}

type jsonReport struct {
	Kind        Kind              `json:"kind"`
	Title       string            `json:"title"`
	GeneratedAt time.Time         `json:"generated_at"`
	Summary     map[string]string `json:"summary,omitempty"`
	Data        any               `json:"data"`
}

func renderJSON(w io.Writer, ds Dataset) error {
	out := jsonReport{
		Kind:        ds.Kind,
		Title:       ds.Title,
		GeneratedAt: ds.GeneratedAt,
		Data:        ds.Records,
	}
	if len(ds.Summary) > 0 {
		out.Summary = make(map[string]string, len(ds.Summary))
		for _, s := range ds.Summary {
			out.Summary[slug.Make(s.Label)] = s.Value
		}
	}
	if out.Data == nil {
		out.Data = ds.Rows
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r *Renderer) renderPDF(ctx context.Context, w io.Writer, ds Dataset) error {
	summary := make([]pdf.SummaryLine, len(ds.Summary))
	for i, s := range ds.Summary {
		summary[i] = pdf.SummaryLine{Label: s.Label, Value: s.Value}
	}
	doc, err := r.pdf.GenerateStatement(ctx, pdf.StatementData{
		Title:       ds.Title,
		Subtitle:    ds.Subtitle,
		GeneratedAt: ds.GeneratedAt,
		Headers:     ds.Headers,
		Rows:        ds.Rows,
		Summary:     summary,
	})
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrPDFUnavailable
	}
	_, err = io.Copy(w, doc)
	return err
}

// FileName builds a default output name such as
// "monthly-revenue-20240630.pdf".
func FileName(ds Dataset, format Format) string {
	return fmt.Sprintf("%s-%s.%s", slug.Make(ds.Title), ds.GeneratedAt.UTC().Format("20060102"), format.Extension())
}
