package views

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"houses_scraper/models"
)

const maxDescription = 160

// Console prints one panel per listing and a summary per run.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

func NewConsole(out io.Writer, width int) *Console {
	if width <= 0 {
		width = 80
	}
	return &Console{out: out, width: width}
}

func (c *Console) Render(l *models.Listing) {
	c.write(ListingPanel(l, c.width))
}

func (c *Console) RenderSummary(run *models.ScrapeRun) {
	c.write(SummaryPanel(run, c.width))
}

func (c *Console) write(panel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, panel)
}

func ListingPanel(l *models.Listing, width int) string {
	rows := []string{
		Title.Render(l.Title),
		Muted.Render(l.URL),
		"",
		row("Price", l.Price),
		row("Extra", joinOr(l.AdditionalPrice, " + ")),
		row("Address", l.Address),
		row("Type", l.ListingType),
		row("Features", joinOr(l.Properties, ", ")),
		row("Published", l.PublishedAt),
		row("Images", fmt.Sprintf("%d", len(l.Images))),
		row("Contacts", joinOr(l.Contacts, ", ")),
	}
	if l.Transport != nil {
		rows = append(rows, row("Transport", transportLine(l.Transport)))
	}
	if d := truncate(l.Description, maxDescription); d != "" && d != models.Undefined {
		rows = append(rows, "", Muted.Render(d))
	}

	return ListingCard.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func SummaryPanel(run *models.ScrapeRun, width int) string {
	rows := []string{
		Title.Render("Run " + run.ID.String()[:8]),
		row("Status", statusStyle(run.Status).Render(string(run.Status))),
		row("Duration", run.Duration().Round(time.Second).String()),
		row("Pages", fmt.Sprintf("%d / %d", run.PagesFetched, run.PageLimit)),
		row("Listings", fmt.Sprintf("%d", run.ListingsFound)),
		row("New", fmt.Sprintf("%d", run.ListingsNew)),
		row("Replaced", fmt.Sprintf("%d", run.ListingsReplaced)),
		row("Failed", fmt.Sprintf("%d", run.ListingsFailed)),
		row("Errors", fmt.Sprintf("%d", run.ErrorsCount)),
	}
	return SummaryCard.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, Label.Render(label), Value.Render(value))
}

func statusStyle(s models.RunStatus) lipgloss.Style {
	switch s {
	case models.RunStatusCompleted:
		return StatusSuccess
	case models.RunStatusFailed:
		return StatusError
	default:
		return StatusPending
	}
}

func transportLine(t *models.Transport) string {
	line := fmt.Sprintf("%d %s", t.StatusCode, t.Reason)
	if t.ServerIP != "" {
		line += " from " + t.ServerIP
	}
	return strings.TrimSpace(line)
}

func joinOr(items []string, sep string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, sep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
