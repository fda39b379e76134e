package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
)

// ChartService is the subset of the chart of accounts service used by the CLI.
type ChartService interface {
	ImportXLSX(ctx context.Context, tenantID int64, r io.Reader) (int, error)
	ExportXLSX(ctx context.Context, tenantID int64, w io.Writer) error
	Upsert(ctx context.Context, tenantID int64, inputs []accounts.CreateInput) (int, error)
}

// ChartCLI imports, exports and seeds a tenant's chart of accounts.
type ChartCLI struct {
	service ChartService
}

// NewChartCLI constructs the helper.
func NewChartCLI(service ChartService) *ChartCLI {
	return &ChartCLI{service: service}
}

// ChartOptions configures a chart command. Path "-" means stdin or stdout.
type ChartOptions struct {
	TenantID   int64
	Path       string
	JSONOutput bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// ChartSummary is the structured outcome of an import or seed.
type ChartSummary struct {
	TenantID int64  `json:"tenant_id"`
	Source   string `json:"source"`
	Rows     int    `json:"rows"`
}

var errTenantRequired = errors.New("tenant id must be positive")

// ImportCommand loads a workbook into the tenant's chart, returning the exit code.
func (c *ChartCLI) ImportCommand(ctx context.Context, opts ChartOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if opts.TenantID <= 0 {
		_, _ = fmt.Fprintf(stderr, "coa-import: %v\n", errTenantRequired)
		return 2
	}
	src := opts.Stdin
	if opts.Path != "-" {
		f, err := os.Open(opts.Path)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "coa-import: %v\n", err)
			return 1
		}
		defer f.Close()
		src = f
	}
	if src == nil {
		src = os.Stdin
	}
	rows, err := c.service.ImportXLSX(ctx, opts.TenantID, src)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "coa-import: %v\n", err)
		return 1
	}
	return c.report(stdout, stderr, opts, ChartSummary{TenantID: opts.TenantID, Source: opts.Path, Rows: rows})
}

// SeedCommand installs the Circular 200 starter chart, returning the exit code.
// Existing accounts with the same codes are updated in place.
func (c *ChartCLI) SeedCommand(ctx context.Context, opts ChartOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if opts.TenantID <= 0 {
		_, _ = fmt.Fprintf(stderr, "coa-seed: %v\n", errTenantRequired)
		return 2
	}
	rows, err := c.service.Upsert(ctx, opts.TenantID, accounts.Circular200())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "coa-seed: %v\n", err)
		return 1
	}
	return c.report(stdout, stderr, opts, ChartSummary{TenantID: opts.TenantID, Source: "circular-200", Rows: rows})
}

// ExportCommand writes the tenant's chart as a workbook, returning the exit code.
func (c *ChartCLI) ExportCommand(ctx context.Context, opts ChartOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if opts.TenantID <= 0 {
		_, _ = fmt.Fprintf(stderr, "coa-export: %v\n", errTenantRequired)
		return 2
	}
	if opts.Path == "-" || opts.Path == "" {
		if err := c.service.ExportXLSX(ctx, opts.TenantID, stdout); err != nil {
			_, _ = fmt.Fprintf(stderr, "coa-export: %v\n", err)
			return 1
		}
		return 0
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "coa-export: %v\n", err)
		return 1
	}
	if err := c.service.ExportXLSX(ctx, opts.TenantID, f); err != nil {
		_ = f.Close()
		_, _ = fmt.Fprintf(stderr, "coa-export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		_, _ = fmt.Fprintf(stderr, "coa-export: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "wrote chart of tenant %d to %s\n", opts.TenantID, opts.Path)
	return 0
}

func (c *ChartCLI) report(stdout, stderr io.Writer, opts ChartOptions, summary ChartSummary) int {
	if opts.JSONOutput {
		return encodeJSON(stdout, stderr, summary)
	}
	_, _ = fmt.Fprintf(stdout, "applied %d account(s) from %s to tenant %d\n", summary.Rows, summary.Source, summary.TenantID)
	return 0
}
