package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/captable/internal/adapter/http/dto"
	"github.com/iho/captable/internal/domain"
)

const nameWidth = 24

var (
	baseURL    string
	timeout    time.Duration
	jsonOutput bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "captable",
		Short:         "Cap table CLI tool",
		Long:          `A command line interface for inspecting and simulating company cap tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the cap table API")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON instead of a table")

	root.AddCommand(summaryCmd(), recalculateCmd(), validateCmd(), simulateCmd())

	return root
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <company-id>",
		Short: "Show the current cap table of a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SummaryResponse
			if err := newAPIClient().call(cmd.Context(), http.MethodGet, companyPath(args[0], ""), &resp); err != nil {
				return err
			}
			printSummary(&resp)
			return nil
		},
	}
}

func recalculateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate <company-id>",
		Short: "Normalize a company's cap table and persist the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.SummaryResponse
			if err := newAPIClient().call(cmd.Context(), http.MethodPost, companyPath(args[0], "/recalculate"), &resp); err != nil {
				return err
			}
			printSummary(&resp)
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <company-id>",
		Short: "Check that a company's stored equity sums to 100%",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ValidationResponse
			if err := newAPIClient().call(cmd.Context(), http.MethodGet, companyPath(args[0], "/validate"), &resp); err != nil {
				return err
			}

			if jsonOutput {
				printJSON(resp)
			} else if resp.Valid {
				fmt.Printf("Validation PASSED\nTotal equity: %s%%\n", resp.TotalEquity)
			} else {
				fmt.Printf("Validation FAILED\nTotal equity: %s%%\nReason: %s\n", resp.TotalEquity, resp.Message)
			}

			if !resp.Valid {
				return fmt.Errorf("cap table of %s is invalid", args[0])
			}
			return nil
		},
	}
}

// simulation is the input of the simulate command: stored rows to start from.
type simulation struct {
	SharesPerPercent int64          `json:"shares_per_percent"`
	Entries          []domain.Entry `json:"entries"`
}

func simulateCmd() *cobra.Command {
	var (
		adds    []string
		removes []string
	)

	cmd := &cobra.Command{
		Use:   "simulate <file|->",
		Short: "Run issuance and removal offline against a cap table read from JSON",
		Long: `Loads entries from a JSON file (or stdin with "-"), normalizes them, then
applies every --add and --remove in order and prints the resulting table.

Example:
  captable simulate table.json --add investor:Seed:20 --remove alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			table, err := simulate(input, adds, removes)
			if err != nil {
				return err
			}

			printSummary(summaryFromTable(table))

			if v := table.Validate(); !v.Valid {
				return v.Err
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&adds, "add", nil, "Issue equity as kind:name:percent (repeatable)")
	cmd.Flags().StringArrayVar(&removes, "remove", nil, "Remove an entry by id (repeatable)")

	return cmd
}

func readInput(stdin io.Reader, path string) (*simulation, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var input simulation
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &input, nil
}

func simulate(input *simulation, adds, removes []string) (*domain.CapTable, error) {
	cfg := domain.Config{SharesPerPercent: input.SharesPerPercent}

	table, err := domain.NewCapTableFromEntries(cfg, input.Entries)
	if err != nil {
		return nil, err
	}
	table.Recalculate()

	for _, arg := range adds {
		kind, name, percent, err := parseIssuance(arg)
		if err != nil {
			return nil, err
		}
		if _, err := table.AddEntry(kind, name, percent); err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
	}

	for _, id := range removes {
		if err := table.RemoveEntry(id); err != nil {
			return nil, fmt.Errorf("remove %s: %w", id, err)
		}
	}

	return table, nil
}

func parseIssuance(arg string) (domain.Kind, string, decimal.Decimal, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		return 0, "", decimal.Zero, fmt.Errorf("invalid --add %q, want kind:name:percent", arg)
	}

	kind, err := domain.ParseKind(parts[0])
	if err != nil {
		return 0, "", decimal.Zero, err
	}
	name := strings.TrimSpace(parts[1])
	if err := domain.ValidateStakeholderName(name); err != nil {
		return 0, "", decimal.Zero, err
	}
	percent, err := domain.ParsePercent(parts[2])
	if err != nil {
		return 0, "", decimal.Zero, err
	}

	return kind, name, percent, nil
}

func summaryFromTable(table *domain.CapTable) *dto.SummaryResponse {
	snap := table.Snapshot()

	entries := make([]dto.EntryResponse, len(snap.Entries))
	for i, e := range snap.Entries {
		entries[i] = dto.EntryResponse{
			ID:            e.ID,
			Kind:          e.Kind.String(),
			Name:          e.Name,
			EquityPercent: e.EquityPercent.StringFixed(2),
			Shares:        e.Shares,
		}
	}

	return &dto.SummaryResponse{
		TeamEquity:     table.TeamEquity().StringFixed(2),
		InvestorEquity: table.TotalEquityByKind(domain.KindInvestor).StringFixed(2),
		TotalEquity:    snap.TotalEquity.StringFixed(2),
		TotalShares:    snap.TotalShares,
		Entries:        entries,
		TakenAt:        snap.TakenAt,
	}
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func companyPath(companyID, suffix string) string {
	return "/api/v1/companies/" + companyID + "/captable" + suffix
}

// call sends a bodiless request and decodes a 2xx JSON response into out.
// Error responses are decoded as dto.ErrorResponse.
func (c *apiClient) call(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg := apiErr.Error
			if apiErr.Message != "" {
				msg += ": " + apiErr.Message
			}
			return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func printSummary(s *dto.SummaryResponse) {
	if jsonOutput {
		printJSON(s)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tNAME\tEQUITY\tSHARES")
	for _, e := range s.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%d\n", e.ID, e.Kind, truncate(e.Name, nameWidth), e.EquityPercent, e.Shares)
	}
	_ = w.Flush()

	fmt.Printf("\nTeam: %s%%  Investors: %s%%  Total: %s%%  Shares: %d\n",
		s.TeamEquity, s.InvestorEquity, s.TotalEquity, s.TotalShares)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
