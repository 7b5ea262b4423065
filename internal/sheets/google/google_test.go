package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"savings/internal/core"
	"savings/internal/dashboard"
	ports "savings/internal/sheets"
)

type fakeSheetsAPI struct {
	mu       sync.Mutex
	titles   []string
	calls    []string
	values   [][]any
	addedTab string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		f.calls = append(f.calls, "get")
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Requests) == 1 && req.Requests[0].AddSheet != nil {
			f.addedTab = req.Requests[0].AddSheet.Properties.Title
			f.titles = append(f.titles, f.addedTab)
		}
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		if got := r.URL.Query().Get("valueInputOption"); got != "USER_ENTERED" {
			http.Error(w, "bad valueInputOption "+got, http.StatusBadRequest)
			return
		}
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.values = vr.Values
		_, _ = io.WriteString(w, `{"updatedCells":42}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-1", "Savings", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testSnapshot(t *testing.T) ports.Snapshot {
	t.Helper()
	rate := core.NewExchangeRate(decimal.NewFromInt(80), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	goals := []core.Goal{{ID: "g1", Name: "Trip", TargetAmount: decimal.NewFromInt(100), CurrentAmount: decimal.NewFromInt(40), Currency: core.USD}}
	summary, err := dashboard.Summarize(goals, rate, core.INR)
	if err != nil {
		t.Fatal(err)
	}
	cards, err := dashboard.Cards(goals, rate)
	if err != nil {
		t.Fatal(err)
	}
	return ports.Snapshot{GeneratedAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), Revision: 3, Summary: summary, Cards: cards}
}

func TestWriteSnapshotCreatesSheetOnce(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"Sheet1"}}
	c := newTestClient(t, api)
	ctx := context.Background()

	if err := c.WriteSnapshot(ctx, testSnapshot(t)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if err := c.WriteSnapshot(ctx, testSnapshot(t)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	want := []string{"get", "batchUpdate", "clear", "update", "clear", "update"}
	if strings.Join(api.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", api.calls, want)
	}
	if api.addedTab != "Savings" {
		t.Fatalf("expected Savings tab to be added, got %q", api.addedTab)
	}
	last := api.values[len(api.values)-1]
	if last[0] != "Trip" || last[5] != "40.00" {
		t.Fatalf("unexpected goal row %v", last)
	}
}

func TestWriteSnapshotExistingSheet(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"Savings"}}
	c := newTestClient(t, api)

	if err := c.WriteSnapshot(context.Background(), testSnapshot(t)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if api.addedTab != "" {
		t.Fatalf("did not expect a new tab, got %q", api.addedTab)
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), "", "Savings", Credentials{JSON: "{}"}, nil); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(context.Background(), "sheet-1", "Savings", Credentials{}, nil); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(context.Background(), "sheet-1", "Savings", Credentials{File: "/non/existent.json"}, nil); err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteSnapshotKeepsNamesLiteral(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"Savings"}}
	c := newTestClient(t, api)

	rate := core.NewExchangeRate(decimal.NewFromInt(80), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	names := []string{`=HYPERLINK("http://x.test","x")`, "+1 trip", "-car", "@home", "Plain"}
	var goals []core.Goal
	for i, n := range names {
		goals = append(goals, core.Goal{ID: fmt.Sprintf("g%d", i), Name: n, TargetAmount: decimal.NewFromInt(10), CurrentAmount: decimal.Zero, Currency: core.USD})
	}
	summary, err := dashboard.Summarize(goals, rate, core.INR)
	if err != nil {
		t.Fatal(err)
	}
	cards, err := dashboard.Cards(goals, rate)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.WriteSnapshot(context.Background(), ports.Snapshot{Summary: summary, Cards: cards}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	goalRows := api.values[len(api.values)-len(names):]
	want := []string{`'=HYPERLINK("http://x.test","x")`, "'+1 trip", "'-car", "'@home", "Plain"}
	for i, row := range goalRows {
		if row[0] != want[i] {
			t.Errorf("name cell %d = %v, want %q", i, row[0], want[i])
		}
		if row[2] != "10.00" {
			t.Errorf("amount cell %d = %v, want 10.00", i, row[2])
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"Savings":       "Savings",
		"My Savings":    "'My Savings'",
		"Bob's savings": "'Bob''s savings'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteSnapshotWithoutService(t *testing.T) {
	c := &Client{}
	if err := c.WriteSnapshot(context.Background(), ports.Snapshot{}); err == nil {
		t.Fatal("expected error when service is nil")
	}
}
