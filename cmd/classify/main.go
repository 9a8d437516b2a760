// Command classify runs report files through the ingest engine offline and
// prints the batch result as JSON.
//
//	classify [-merge] [-context] [-config path] file-or-dir...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ignite/adreport-ingest/internal/config"
	"github.com/ignite/adreport-ingest/internal/ingest"
	"github.com/ignite/adreport-ingest/internal/ledger"
	"github.com/ignite/adreport-ingest/internal/pkg/distlock"
	"github.com/ignite/adreport-ingest/internal/pkg/logger"
	"github.com/ignite/adreport-ingest/internal/prompt"
	"github.com/ignite/adreport-ingest/internal/sheetio"
	"github.com/ignite/adreport-ingest/internal/storage"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fl := flag.NewFlagSet("classify", flag.ContinueOnError)
	fl.SetOutput(stderr)
	configPath := fl.String("config", "", "path to the YAML config file (defaults when empty)")
	merge := fl.Bool("merge", false, "merge the result into the configured state and save it")
	withContext := fl.Bool("context", false, "print the analysis context instead of the JSON result")
	days := fl.Int("days", 0, "ledger window for -context (default from config)")
	verbose := fl.Bool("v", false, "log progress to stderr")
	if err := fl.Parse(args); err != nil {
		return 2
	}
	if fl.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: classify [-merge] [-context] [-config path] file-or-dir...")
		return 2
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "loading config: %v\n", err)
		return 1
	}

	level := logger.WARN
	if *verbose {
		level = logger.DEBUG
	}
	log := logger.New(stderr, level)

	files, err := collectFiles(fl.Args())
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	result := ingest.NewProcessorFromConfig(cfg.Ingest, log).ProcessFiles(ctx, files)

	if !*merge && !*withContext {
		return writeJSON(stdout, stderr, result)
	}

	kv, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(stderr, "opening storage: %v\n", err)
		return 1
	}
	defer kv.Close()
	repo := storage.NewRepository(kv, cfg.Storage.KeyPrefix)

	if *merge {
		if newLock := storage.MergeLock(kv, cfg.Storage.KeyPrefix+"merge", time.Minute); newLock != nil {
			release, err := distlock.Hold(ctx, newLock(), 100*time.Millisecond)
			if err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return 1
			}
			defer release()
		}
	}

	l, err := repo.LoadLedger(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	s, err := repo.LoadStore(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	l = ledger.MergeTier1(l, result.Tier1)
	s = ledger.MergeTier2(s, result.Tier2)

	if *merge {
		if err := repo.SaveLedger(ctx, l); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		if err := repo.SaveStore(ctx, s); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		log.Info("State saved", "ledger_days", len(l), "report_count", s.ReportCount)
	}

	if *withContext {
		window := *days
		if window <= 0 {
			window = cfg.Prompt.ExcerptDays
		}
		text := prompt.BuildContext(s, ledger.Excerpt(l, "", window), nil, prompt.OptionsFromConfig(cfg.Prompt))
		fmt.Fprint(stdout, text)
		return 0
	}
	return writeJSON(stdout, stderr, result)
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "encoding result: %v\n", err)
		return 1
	}
	return 0
}

// collectFiles expands directories to the report files inside them, in
// lexical order. Named files are passed through whatever their extension.
func collectFiles(paths []string) ([]ingest.File, error) {
	var files []ingest.File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, ingest.PathFile(p))
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && sheetio.Known(sheetio.Ext(path)) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			files = append(files, ingest.PathFile(f))
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no report files found")
	}
	return files, nil
}
