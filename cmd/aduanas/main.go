package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"aduanas/internal/config"
	"aduanas/internal/listener"
	"aduanas/internal/pipeline"
	"aduanas/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := config.NewLogger(cfg.Log)
	must(err)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "raw:unify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", cfg.RawDir, "directory with raw workbooks")
		sheet := fs.String("sheet", cfg.RawSheet, "sheet name")
		out := fs.String("out", cfg.InputFile, "unified output file")
		_ = fs.Parse(os.Args[2:])
		res, err := pipeline.UnifyRaw(*dir, *sheet, *out, log)
		must(err)
		fmt.Printf("unified files=%d skipped=%d rows=%d output=%s\n", len(res.Files), len(res.Skipped), res.Rows, *out)
	case "process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		variant := fs.String("variant", cfg.Variant, "kits|general")
		input := fs.String("input", cfg.InputFile, "unified input file")
		opts := bindOutputs(fs)
		workers := fs.Int("workers", cfg.Workers, "concurrent lines")
		noDB := fs.Bool("no-db", false, "do not store the run")
		_ = fs.Parse(os.Args[2:])

		runCfg := cfg.WithVariant(*variant)
		runCfg.Workers = *workers
		res := process(ctx, runCfg, log, *input, opts.resolve(runCfg), *noDB)
		printSummary(res)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		variant := fs.String("variant", cfg.Variant, "kits|general")
		dir := fs.String("dir", cfg.RawDir, "directory with raw workbooks")
		opts := bindOutputs(fs)
		noDB := fs.Bool("no-db", false, "do not store the run")
		_ = fs.Parse(os.Args[2:])

		runCfg := cfg.WithVariant(*variant)
		_, err := pipeline.UnifyRaw(*dir, runCfg.RawSheet, runCfg.InputFile, log)
		must(err)
		res := process(ctx, runCfg, log, runCfg.InputFile, opts.resolve(runCfg), *noDB)
		printSummary(res)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.String("run", "", "run id (default: latest)")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		must(pipeline.NewProcessingService(db, cfg, log).ExportRun(*runID, *out))
		fmt.Printf("exported run to %s\n", *out)
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%s %s variant=%s lines=%d processed=%d errored=%d records=%d input=%s\n",
				r.CreatedAt, r.RunID, r.Variant, r.Lines, r.Processed, r.Errored, r.Records, r.InputPath)
		}
	case "listen":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		must(listener.NewService(db, cfg, log).Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

type outputFlags struct {
	csv  *string
	xlsx *string
	json *string
}

func bindOutputs(fs *flag.FlagSet) outputFlags {
	return outputFlags{
		csv:  fs.String("output", "", "csv output (default OUTPUT_DIR/OUTPUT_FILE)"),
		xlsx: fs.String("xlsx", "", "optional workbook output"),
		json: fs.String("json", "", "optional json report output"),
	}
}

func (o outputFlags) resolve(cfg config.Config) pipeline.Outputs {
	csv := *o.csv
	if csv == "" {
		csv = filepath.Join(cfg.OutputDir, cfg.OutputFile)
	}
	return pipeline.Outputs{CSV: csv, XLSX: *o.xlsx, JSON: *o.json}
}

func process(ctx context.Context, cfg config.Config, log *zap.Logger, input string, out pipeline.Outputs, noDB bool) pipeline.Result {
	var db *storage.DB
	if !noDB {
		opened, err := storage.Open(cfg.DBPath)
		must(err)
		defer opened.Close()
		db = opened
	}
	res, err := pipeline.NewProcessingService(db, cfg, log).RunFile(ctx, input, out)
	must(err)
	return res
}

func printSummary(res pipeline.Result) {
	s := res.Summary
	fmt.Printf("run=%s variant=%s lines=%d processed=%d errored=%d records=%d duplicates=%d\n",
		s.RunID, s.Variant, s.Lines, s.Processed, s.Errored, s.Records, s.Duplicates)
}

func usage() {
	fmt.Println("usage: aduanas <command>")
	fmt.Println("commands:")
	fmt.Println("  raw:unify [--dir=dataraw] [--sheet=DatosParte1] [--out=dataraw.csv]")
	fmt.Println("  process [--variant=kits|general] [--input=dataraw.csv] [--output=...csv] [--xlsx=...] [--json=...] [--workers=4] [--no-db]")
	fmt.Println("  run [--variant=kits|general] [--dir=dataraw] [--output=...csv] [--xlsx=...] [--json=...] [--no-db]")
	fmt.Println("  export:xlsx [--run=<id>] --out=./out/result.xlsx")
	fmt.Println("  runs:list [--limit=20]")
	fmt.Println("  listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
