package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"transparencia/internal"
	"transparencia/internal/app"
	"transparencia/internal/config"
	"transparencia/internal/pipeline"
	"transparencia/internal/scheduler"
)

var errUsage = errors.New("unknown or missing command")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if len(args) < 1 {
		return errUsage
	}

	logger := app.NewLogger(cfg.LogLevel)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := args[0]
	switch cmd {
	case "sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "write to a local xlsx instead of the spreadsheet")
		_ = fs.Parse(args[1:])
		svc, err := app.NewService(cfg, app.Options{OutputPath: *out, Notify: *out == ""}, logger)
		if err != nil {
			return err
		}
		summary, err := svc.RunAll(ctx)
		printSummary(summary)
		if err != nil {
			return err
		}
		return summary.Errors()
	case "sync:payroll":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dept := fs.String("dept", "", "department id or name")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(args[1:])
		if strings.TrimSpace(*dept) == "" {
			return fmt.Errorf("--dept is required")
		}
		svc, err := app.NewService(cfg, app.Options{OutputPath: *out}, logger)
		if err != nil {
			return err
		}
		res, err := svc.RunPayroll(ctx, *dept)
		if err != nil {
			return err
		}
		printResult(res)
		return res.Err
	case "sync:table":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		feed := fs.String("feed", "", "feed name from the catalog")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(args[1:])
		if strings.TrimSpace(*feed) == "" {
			return fmt.Errorf("--feed is required")
		}
		svc, err := app.NewService(cfg, app.Options{OutputPath: *out}, logger)
		if err != nil {
			return err
		}
		res, err := svc.RunTable(ctx, *feed)
		if err != nil {
			return err
		}
		printResult(res)
		return res.Err
	case "parse:payroll":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "payroll report csv")
		year := fs.Int("year", time.Now().Year(), "reference year of the report")
		out := fs.String("out", "", "output path (.xlsx or .csv)")
		_ = fs.Parse(args[1:])
		if strings.TrimSpace(*input) == "" {
			return fmt.Errorf("--input is required")
		}
		records, err := pipeline.ParsePayrollFile(ctx, *input, *year, *out, logger)
		if err != nil {
			return err
		}
		fmt.Printf("parsed %d records from %s\n", len(records), *input)
		if *out != "" {
			fmt.Printf("exported to %s\n", *out)
		}
		return nil
	case "daemon":
		svc, err := app.NewService(cfg, app.Options{Notify: true}, logger)
		if err != nil {
			return err
		}
		interval := time.Duration(cfg.SyncIntervalMin) * time.Minute
		return scheduler.New(svc, interval, logger).Run(ctx)
	default:
		return errUsage
	}
}

func printSummary(summary internal.RunSummary) {
	if summary.Err != nil {
		fmt.Printf("run %s failed: %v\n", summary.RunID, summary.Err)
	}
	for _, res := range summary.Results {
		printResult(res)
	}
}

func printResult(res internal.FeedResult) {
	switch {
	case res.Err != nil:
		fmt.Printf("FALHA %s: %v\n", res.Feed, res.Err)
	case res.Period != nil:
		fmt.Printf("OK %s -> %s: %d registros (%s)\n", res.Feed, res.Tab, res.Count, res.Period)
	default:
		fmt.Printf("OK %s -> %s: %d registros\n", res.Feed, res.Tab, res.Count)
	}
}

func usage() {
	fmt.Println("commands:")
	fmt.Println("  sync [--out=file.xlsx]")
	fmt.Println("  sync:payroll --dept=193 [--out=file.xlsx]")
	fmt.Println("  sync:table --feed=emendas [--out=file.xlsx]")
	fmt.Println("  parse:payroll --input=relacao.csv --year=2024 [--out=file.xlsx|file.csv]")
	fmt.Println("  daemon")
}
