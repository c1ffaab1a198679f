package exports

import (
	"strings"
	"testing"
	"time"

	"leadgen_backend/internal/campaigns/repository"
)

func TestRenderCSVShape(t *testing.T) {
	website := "https://acme.example"
	phone := "+442079460000"
	created := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	leads := []repository.Lead{
		{CompanyName: "Acme Plumbing", Website: &website, Phone: &phone, CreatedAt: created},
		{CompanyName: `Quote "Me" Ltd, East`, CreatedAt: created},
	}

	data, err := renderCSV(leads)
	if err != nil {
		t.Fatalf("renderCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want header + 2 rows", len(lines))
	}
	if lines[0] != "company_name,website,phone,email,address,created_at" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "Acme Plumbing,https://acme.example,+442079460000,,,2026-03-01T12:30:00Z" {
		t.Fatalf("row = %q", lines[1])
	}
	// Commas and quotes must be escaped, not break the row.
	if !strings.HasPrefix(lines[2], `"Quote ""Me"" Ltd, East"`) {
		t.Fatalf("quoting broken: %q", lines[2])
	}
}

func TestRenderCSVEmpty(t *testing.T) {
	data, err := renderCSV(nil)
	if err != nil {
		t.Fatalf("renderCSV() error = %v", err)
	}
	if strings.TrimSpace(string(data)) != "company_name,website,phone,email,address,created_at" {
		t.Fatalf("empty export should be header only, got %q", string(data))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Plumbers in London": "Plumbers-in-London",
		"../../etc/passwd":   "etcpasswd",
		"één!!":              "n",
		"":                   "campaign",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
