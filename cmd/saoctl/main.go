package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sao-erp/sao-erp/cmd/saoctl/cli"
	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/app"
	"github.com/sao-erp/sao-erp/internal/platform/db"
	"github.com/sao-erp/sao-erp/internal/shared"
)

const usage = `usage: saoctl <command> [flags]

commands:
  migrate                                   apply the database schema
  coa-seed   -tenant N                      install the Circular 200 starter chart
  coa-import -tenant N -file chart.xlsx     import a chart workbook ("-" reads stdin)
  coa-export -tenant N -file chart.xlsx     export the chart ("-" writes stdout)
  jobs trigger [-json] [-by who] <task>     enqueue a background task now
  jobs status [-json]                       show default queue statistics
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger := app.NewLogger(cfg)

	switch args[0] {
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN, cfg.DB("saoctl"))
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		_, _ = fmt.Fprintln(stdout, "schema applied")
		return 0
	case "coa-seed", "coa-import", "coa-export":
		return runChart(ctx, cfg, logger, args[0], args[1:], stdout, stderr)
	case "jobs":
		return runJobs(ctx, cfg, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		_, _ = fmt.Fprint(stdout, usage)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func runChart(ctx context.Context, cfg *app.Config, logger *slog.Logger, cmd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	tenant := fs.Int64("tenant", 0, "tenant id")
	file := fs.String("file", "-", "workbook path, - for stdin/stdout")
	jsonOut := fs.Bool("json", false, "print a JSON summary")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.DB("saoctl"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	chart := cli.NewChartCLI(accounts.NewService(accounts.NewRepository(pool), shared.NewAuditLogger(pool)))
	opts := cli.ChartOptions{
		TenantID:   *tenant,
		Path:       *file,
		JSONOutput: *jsonOut,
		Stdin:      os.Stdin,
		Stdout:     stdout,
		Stderr:     stderr,
	}
	switch cmd {
	case "coa-seed":
		return chart.SeedCommand(ctx, opts)
	case "coa-import":
		return chart.ImportCommand(ctx, opts)
	default:
		return chart.ExportCommand(ctx, opts)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	fs := flag.NewFlagSet("jobs "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "print JSON")
	by := fs.String("by", "", "operator recorded on the task payload")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	jobsCLI := cli.NewJobsCLI(cfg.Queue())
	defer func() { _ = jobsCLI.Close() }()

	switch args[0] {
	case "trigger":
		if fs.NArg() != 1 {
			_, _ = fmt.Fprintln(stderr, "jobs trigger: exactly one task name required")
			return 2
		}
		return jobsCLI.TriggerCommand(ctx, cli.TriggerOptions{
			Name:        fs.Arg(0),
			RequestedBy: *by,
			JSONOutput:  *jsonOut,
			Stdout:      stdout,
			Stderr:      stderr,
		})
	case "status":
		return jobsCLI.StatusCommand(ctx, *jsonOut, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
}
