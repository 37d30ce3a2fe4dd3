package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/captable/internal/adapter/http/dto"
	"github.com/iho/captable/internal/domain"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}

	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	out := captureOutput(t, func() {
		printJSON(struct {
			A int `json:"a"`
		}{A: 1})
	})

	expected := "{\n  \"a\": 1\n}\n"
	if out != expected {
		t.Fatalf("unexpected json output:\n%s", out)
	}
}

func TestParseIssuance(t *testing.T) {
	tests := []struct {
		arg     string
		kind    domain.Kind
		name    string
		percent string
		wantErr error
	}{
		{arg: "investor:Seed:20", kind: domain.KindInvestor, name: "Seed", percent: "20"},
		{arg: "Team: Bob :12.5%", kind: domain.KindTeam, name: "Bob", percent: "12.5"},
		{arg: "advisor:Carol:5", wantErr: domain.ErrInvalidKind},
		{arg: "team:Bob:lots", wantErr: domain.ErrInvalidPercentage},
		{arg: "team::5", wantErr: domain.ErrInvalidStakeholderName},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			kind, name, percent, err := parseIssuance(tt.arg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kind != tt.kind || name != tt.name || percent.String() != tt.percent {
				t.Fatalf("got %s %q %s", kind, name, percent)
			}
		})
	}

	if _, _, _, err := parseIssuance("team:Bob"); err == nil {
		t.Fatal("expected malformed issuance to fail")
	}
}

func startingTable() *simulation {
	return &simulation{
		Entries: []domain.Entry{
			{ID: "alice", Kind: domain.KindFounder, Name: "Alice", EquityPercent: mustPercent("60")},
			{ID: "vc", Kind: domain.KindInvestor, Name: "VC1", EquityPercent: mustPercent("40")},
		},
	}
}

func mustPercent(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSimulate(t *testing.T) {
	table, err := simulate(startingTable(), []string{"investor:Seed:20"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{"alice": "48.00", "vc": "32.00"}
	for id, pct := range want {
		e, ok := table.Entry(id)
		if !ok {
			t.Fatalf("missing entry %s", id)
		}
		if got := e.EquityPercent.StringFixed(2); got != pct {
			t.Fatalf("expected %s at %s, got %s", id, pct, got)
		}
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", table.Len())
	}
	if v := table.Validate(); !v.Valid {
		t.Fatalf("expected valid table: %v", v.Err)
	}

	table, err = simulate(startingTable(), []string{"investor:Seed:20"}, []string{"vc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alice, _ := table.Entry("alice")
	if got := alice.EquityPercent.StringFixed(2); got != "70.59" {
		t.Fatalf("expected alice at 70.59 after removal, got %s", got)
	}
}

func TestSimulateErrors(t *testing.T) {
	_, err := simulate(startingTable(), []string{"investor:Whale:101"}, nil)
	var capErr *domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	if _, err := simulate(startingTable(), nil, []string{"ghost"}); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	dup := startingTable()
	dup.Entries = append(dup.Entries, dup.Entries[0])
	if _, err := simulate(dup, nil, nil); !errors.Is(err, domain.ErrDuplicateEntry) {
		t.Fatalf("expected duplicate entry, got %v", err)
	}
}

func TestSimulateCmdFromStdin(t *testing.T) {
	cmd := rootCmd()
	cmd.SetIn(strings.NewReader(`{"entries":[
		{"id":"alice","kind":"founder","name":"Alice","equity_percent":"60"},
		{"id":"vc","kind":"investor","name":"VC1","equity_percent":"40"}
	]}`))
	cmd.SetArgs([]string{"simulate", "-", "--add", "team:Bob:20"})

	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("command failed: %v", err)
		}
	})

	for _, want := range []string{"alice", "48.00%", "32.00%", "Bob", "Team: 68.00%", "Investors: 32.00%", "Total: 100.00%", "Shares: 1000000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestReadInputBadJSON(t *testing.T) {
	if _, err := readInput(strings.NewReader("{"), "-"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := readInput(nil, "/does/not/exist.json"); err == nil {
		t.Fatal("expected open error")
	}
}

func TestAPIClientCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/companies/acme/captable":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"company_id":"acme","total_equity":"100.00","entries":[]}`))
		case "/api/v1/companies/ghost/captable":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"failed to load cap table","code":"COMPANY_NOT_FOUND","message":"company not found: ghost"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	client := &apiClient{baseURL: srv.URL, http: srv.Client()}

	var resp dto.SummaryResponse
	if err := client.call(context.Background(), http.MethodGet, companyPath("acme", ""), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CompanyID != "acme" || resp.TotalEquity != "100.00" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	err := client.call(context.Background(), http.MethodGet, companyPath("ghost", ""), &resp)
	if err == nil || !strings.Contains(err.Error(), "status 404") || !strings.Contains(err.Error(), "company not found") {
		t.Fatalf("expected 404 with message, got %v", err)
	}

	err = client.call(context.Background(), http.MethodGet, "/other", &resp)
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected raw body in error, got %v", err)
	}
}

func TestValidateCmd(t *testing.T) {
	valid := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/companies/acme/captable/validate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if valid {
			_, _ = w.Write([]byte(`{"company_id":"acme","valid":true,"total_equity":"100.00"}`))
			return
		}
		_, _ = w.Write([]byte(`{"company_id":"acme","valid":false,"total_equity":"90.00","code":"OUT_OF_TOLERANCE","message":"total is 90.00%"}`))
	}))
	defer srv.Close()

	cmd := rootCmd()
	cmd.SetArgs([]string{"validate", "acme", "--url", srv.URL})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("command failed: %v", err)
		}
	})
	if !strings.Contains(out, "Validation PASSED") {
		t.Fatalf("unexpected output: %s", out)
	}

	valid = false
	cmd = rootCmd()
	cmd.SetArgs([]string{"validate", "acme", "--url", srv.URL})
	out = captureOutput(t, func() {
		if err := cmd.Execute(); err == nil {
			t.Fatal("expected invalid table to fail the command")
		}
	})
	if !strings.Contains(out, "Validation FAILED") || !strings.Contains(out, "total is 90.00%") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestSummaryCmdJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/companies/acme/captable/recalculate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"company_id":"acme","team_equity":"60.00","total_equity":"100.00","normalized":true,"entries":[]}`))
	}))
	defer srv.Close()

	cmd := rootCmd()
	cmd.SetArgs([]string{"recalculate", "acme", "--url", srv.URL + "/", "--json"})
	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("command failed: %v", err)
		}
	})

	if !strings.Contains(out, `"normalized": true`) || !strings.Contains(out, `"team_equity": "60.00"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}
