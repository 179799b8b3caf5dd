package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

const wordWrap = 80

// renderer prints Markdown, styled for the terminal unless plain is set.
type renderer struct {
	term *glamour.TermRenderer
}

func newRenderer(plain bool) (*renderer, error) {
	if plain {
		return &renderer{}, nil
	}

	term, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}

	return &renderer{term: term}, nil
}

func (r *renderer) render(w io.Writer, markdown string) error {
	out := markdown

	if r.term != nil {
		styled, err := r.term.Render(markdown)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}

		out = styled
	}

	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	_, err := io.WriteString(w, out)

	return err
}

// wisdomMarkdown is the daily card: topic, quote, source and the brief gloss.
func wisdomMarkdown(rec *domain.DailyRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rec.Wisdom.Topic)
	fmt.Fprintf(&b, "*%s*\n\n", rec.Date)

	for _, line := range strings.Split(strings.TrimSpace(rec.Wisdom.Quote), "\n") {
		fmt.Fprintf(&b, "> %s\n", line)
	}

	fmt.Fprintf(&b, "\n**%s**\n\n", rec.Wisdom.Source)
	b.WriteString(strings.TrimSpace(rec.Wisdom.BriefInterpretation))
	b.WriteString("\n")

	return b.String()
}

func explanationMarkdown(rec *domain.DailyRecord) string {
	return fmt.Sprintf("# %s\n\n%s\n", rec.Wisdom.Topic, strings.TrimSpace(rec.Explanation))
}

func historyMarkdown(records []*domain.DailyRecord) string {
	if len(records) == 0 {
		return "No wisdom has been recorded yet.\n"
	}

	var b strings.Builder

	b.WriteString("| Date | Topic | Source | Explained | Illustrated |\n")
	b.WriteString("|------|-------|--------|-----------|-------------|\n")

	for _, rec := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			rec.Date,
			tableCell(rec.Wisdom.Topic),
			tableCell(rec.Wisdom.Source),
			yesNo(rec.HasExplanation()),
			yesNo(rec.HasImage()),
		)
	}

	return b.String()
}

func tableCell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
