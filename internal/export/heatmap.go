package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/seenimoa/tickersent/internal/aggregate"
)

const cellWidth = 8

// Scale from most bearish to most bullish, xterm-256 colors.
var heatScale = []lipgloss.Color{"124", "160", "203", "240", "71", "34", "28"}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Width(cellWidth).Align(lipgloss.Right)
	dateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	blankStyle  = lipgloss.NewStyle().Width(cellWidth)
)

// heatColor maps a score in [-1, 1] onto heatScale.
func heatColor(v float64) lipgloss.Color {
	v = math.Max(-1, math.Min(1, v))
	i := int(math.Round((v + 1) / 2 * float64(len(heatScale)-1)))
	return heatScale[i]
}

// RenderHeatmap renders the pivoted table for a terminal: dates down, tickers
// across, each present cell colored red to green by its mean score. Absent
// cells are left blank.
func RenderHeatmap(table *aggregate.Table) string {
	dates := table.Dates()
	tickers := table.Tickers()
	if len(dates) == 0 || len(tickers) == 0 {
		return "no sentiment data\n"
	}

	var b strings.Builder
	b.WriteString(dateStyle.Render("date"))
	for _, t := range tickers {
		b.WriteString(headerStyle.Render(t))
	}
	b.WriteString("\n")

	for _, d := range dates {
		b.WriteString(dateStyle.Render(d.String()))
		for _, t := range tickers {
			v, ok := table.Cell(t, d)
			if !ok {
				b.WriteString(blankStyle.Render(""))
				continue
			}
			style := lipgloss.NewStyle().
				Width(cellWidth).
				Align(lipgloss.Right).
				Foreground(lipgloss.Color("15")).
				Background(heatColor(v))
			b.WriteString(style.Render(fmt.Sprintf("%+.2f", v)))
		}
		b.WriteString("\n")
	}
	return b.String()
}
