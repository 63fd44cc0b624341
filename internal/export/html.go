package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/seenimoa/tickersent/internal/aggregate"
)

// htmlTemplate is the standalone HTML page for a sentiment table.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #1a1a2e; margin: 20px; }
  h1 { font-size: 1.4rem; border-bottom: 3px solid #2563eb; padding-bottom: 6px; }
  table { border-collapse: collapse; }
  th, td { padding: 4px 10px; border: 1px solid #e5e7eb; text-align: right; font-variant-numeric: tabular-nums; }
  th { background: #f8fafc; }
  td.date { text-align: left; color: #6b7280; }
  .muted { color: #6b7280; font-size: 0.8rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table>
  <thead><tr><th>Date</th>{{range .Tickers}}<th>{{.}}</th>{{end}}</tr></thead>
  <tbody>
  {{range .Rows}}
  <tr><td class="date">{{.Date}}</td>{{range .Cells}}{{if .Present}}<td style="background: {{.Color}}">{{.Value}}</td>{{else}}<td></td>{{end}}{{end}}</tr>
  {{end}}
  </tbody>
</table>
<p class="muted">Generated {{.GeneratedAt}}</p>
</body>
</html>`

var pageTmpl = template.Must(template.New("sentiment").Parse(htmlTemplate))

type htmlCell struct {
	Present bool
	Value   string
	Color   template.CSS
}

type htmlRow struct {
	Date  string
	Cells []htmlCell
}

type htmlPage struct {
	Title       string
	GeneratedAt string
	Tickers     []string
	Rows        []htmlRow
}

// cssColor interpolates between red (-1), white (0) and green (+1).
func cssColor(v float64) template.CSS {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	if v >= 0 {
		c := int(255 - v*(255-163))
		return template.CSS(fmt.Sprintf("rgb(%d, 255, %d)", c, c))
	}
	c := int(255 + v*(255-163))
	return template.CSS(fmt.Sprintf("rgb(255, %d, %d)", c, c))
}

// WriteHTML writes the pivoted table as a standalone HTML page.
func WriteHTML(w io.Writer, table *aggregate.Table, title string) error {
	if title == "" {
		title = "Mean headline sentiment"
	}
	page := htmlPage{
		Title:       title,
		GeneratedAt: time.Now().Format(time.RFC1123),
		Tickers:     table.Tickers(),
	}
	for _, d := range table.Dates() {
		row := htmlRow{Date: d.String()}
		for _, t := range page.Tickers {
			v, ok := table.Cell(t, d)
			if !ok {
				row.Cells = append(row.Cells, htmlCell{})
				continue
			}
			row.Cells = append(row.Cells, htmlCell{Present: true, Value: formatScore(v), Color: cssColor(v)})
		}
		page.Rows = append(page.Rows, row)
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
