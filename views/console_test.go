package views

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"houses_scraper/models"
)

func TestConsole_RenderListing(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, 100)

	c.Render(&models.Listing{
		URL:             "https://www.vivareal.com.br/imovel/casa-id-1/",
		Title:           "Casa Bonita",
		Price:           "4.500 /mês",
		AdditionalPrice: []string{"650", "120"},
		Address:         "Rua A, 10",
		Properties:      []string{},
		Contacts:        []string{"11 3333-4444"},
		Transport:       &models.Transport{StatusCode: 200, Reason: "OK", ServerIP: "1.2.3.4"},
	})

	out := buf.String()
	for _, want := range []string{"Casa Bonita", "4.500 /mês", "650 + 120", "11 3333-4444", "200 OK from 1.2.3.4"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in panel:\n%s", want, out)
		}
	}
}

func TestConsole_RenderSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, 0)

	finished := time.Now()
	c.RenderSummary(&models.ScrapeRun{
		ID:           uuid.New(),
		StartedAt:    finished.Add(-90 * time.Second),
		FinishedAt:   &finished,
		Status:       models.RunStatusCompleted,
		PageLimit:    3,
		PagesFetched: 3,
		ListingsNew:  7,
	})

	out := buf.String()
	for _, want := range []string{"completed", "3 / 3", "1m30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in summary:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("short strings must be kept, got %q", got)
	}
}
