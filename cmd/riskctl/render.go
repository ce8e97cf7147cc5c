package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/pkg/external"
)

var (
	colorMuted = lipgloss.Color("#78909C")

	styleTitle = lipgloss.NewStyle().Bold(true)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color(domain.ColorLow))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color(domain.ColorHigh))
)

// printer renders command output, styled only when writing to a terminal
type printer struct {
	out    io.Writer
	styled bool
}

func newPrinter(out io.Writer) *printer {
	p := &printer{out: out}
	if f, ok := out.(*os.File); ok {
		p.styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) json(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// badge renders the risk level on the classifier's color
func (p *printer) badge(r *domain.RiskAssessmentResult) string {
	label := strings.ToUpper(string(r.RiskLevel))
	if !p.styled {
		return "[" + label + "]"
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(r.RiskColor)).
		Padding(0, 1).
		Render(label)
}

func (p *printer) result(kind domain.ConditionKind, id string, r *domain.RiskAssessmentResult) {
	fmt.Fprintf(p.out, "%s %s %.1f%%\n", p.render(styleTitle, kind.DisplayName()), p.badge(r), r.RiskPercentage)

	details := fmt.Sprintf("confidence %.2f, source %s", r.Confidence, r.Source)
	if r.ModelUsed != "" {
		details += ", model " + r.ModelUsed
	}
	fmt.Fprintln(p.out, "  "+p.render(styleMuted, details))
	if id != "" {
		fmt.Fprintln(p.out, "  "+p.render(styleMuted, "id "+id))
	}
}

func (p *printer) records(records []*history.Record, total int64) {
	if len(records) == 0 {
		fmt.Fprintln(p.out, p.render(styleMuted, "no assessments recorded"))
		return
	}
	for _, rec := range records {
		fmt.Fprintf(p.out, "%s  %-12s %s %5.1f%%  %-8s %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Condition.DisplayName(),
			p.badge(&rec.Result),
			rec.Result.RiskPercentage,
			rec.Result.Source,
			p.render(styleMuted, rec.ID))
	}
	fmt.Fprintln(p.out, p.render(styleMuted, fmt.Sprintf("%d of %d assessments", len(records), total)))
}

func (p *printer) health(statuses []external.HealthStatus) {
	for _, st := range statuses {
		switch {
		case st.Healthy:
			fmt.Fprintf(p.out, "%s %-12s %s %s\n", p.render(styleOK, "✓"), st.Condition.DisplayName(),
				st.URL, p.render(styleMuted, fmt.Sprintf("%dms", st.Latency.Milliseconds())))
		case st.Error != "":
			fmt.Fprintf(p.out, "%s %-12s %s\n", p.render(styleError, "✗"), st.Condition.DisplayName(), st.Error)
		default:
			fmt.Fprintf(p.out, "%s %-12s %s status %d\n", p.render(styleError, "✗"), st.Condition.DisplayName(), st.URL, st.Status)
		}
	}
}

func (p *printer) failure(label string, err error) {
	fmt.Fprintf(p.out, "%s %s: %v\n", p.render(styleError, "✗"), label, err)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
