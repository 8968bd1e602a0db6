package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	timingattack "github.com/senadmustafi/Timing-attack"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(12)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	barMaxWidth = 30
)

func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// renderRanking draws the most likely lengths with their latency relative
// to the slowest.
func renderRanking(w io.Writer, table timingattack.LengthTable, n int) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Most likely lengths"))
	b.WriteString("\n")
	for _, r := range table.Ranking(n) {
		bar := strings.Repeat("█", int(r.Ratio*float64(barMaxWidth)+0.5))
		fmt.Fprintf(&b, "%4d  %s %s\n", r.Length, barStyle.Render(fmt.Sprintf("%-*s", barMaxWidth, bar)),
			mutedStyle.Render(fmt.Sprintf("%.3f  %.0f ns", r.Ratio, r.LatencyNs)))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderRecover(w io.Writer, account string, res *timingattack.RecoverResult) {
	status := failStyle.Render("not found")
	if res.Found {
		status = okStyle.Render("found")
	}
	lines := []string{
		titleStyle.Render("Recovery"),
		field("account", account),
		field("status", status),
		field("guess", res.Guess),
		field("trials", fmt.Sprint(res.Iterations)),
		field("adopted", fmt.Sprint(res.Adopted)),
		field("elapsed", res.ElapsedTime.Round(time.Millisecond).String()),
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderResult(w io.Writer, res *timingattack.Result, topN int) {
	if res.Lengths != nil {
		renderRanking(w, res.Lengths, topN)
	}
	fmt.Fprintln(w, mutedStyle.Render("run "+res.RunID))
	renderRecover(w, res.Account, &res.Recover)
}

// stepPrinter reports adopted guesses as the search runs.
func stepPrinter(w io.Writer) func(timingattack.Step) {
	return func(st timingattack.Step) {
		if st.Found {
			fmt.Fprintf(w, "%s %s\n", okStyle.Render("accepted"), st.Guess)
			return
		}
		fmt.Fprintf(w, "%s %s %s\n", mutedStyle.Render(fmt.Sprintf("[%6d] pos %2d", st.Iteration, st.Position)),
			st.Guess, mutedStyle.Render(fmt.Sprintf("%.0f > %.0f ns", st.CandidateNs, st.GuessNs)))
	}
}
