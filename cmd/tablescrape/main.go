package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/workbenchdata/tablescrape/internal/config"
	"github.com/workbenchdata/tablescrape/internal/diag"
	"github.com/workbenchdata/tablescrape/internal/fetch"
	"github.com/workbenchdata/tablescrape/internal/render"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "fetch":
		err = runFetch(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tablescrape fetch|render [flags]")
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var (
		url       string
		out       string
		timeout   time.Duration
		userAgent string
		verbose   bool
	)
	fs.StringVar(&url, "url", "", "URL to fetch; empty means no new attempt")
	fs.StringVar(&out, "out", "snapshot.bin", "Path to write the snapshot")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
	fs.StringVar(&userAgent, "ua", "tablescrape/1.0", "User-Agent for the request")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setLevel(verbose)

	client := &fetch.Client{UserAgent: userAgent, Timeout: timeout}
	diags := client.Fetch(context.Background(), url, out)
	printDiags(diags)
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		snapshotPath string
		out          string
		settingsPath string
		tableNum     int
		firstRow     bool
		verbose      bool
	)
	fs.StringVar(&snapshotPath, "snapshot", "snapshot.bin", "Path to the stored snapshot")
	fs.StringVar(&out, "out", "table.parquet", "Path to write the normalized table")
	fs.StringVar(&settingsPath, "settings", "", "Path to a YAML settings file; empty uses defaults")
	fs.IntVar(&tableNum, "table", 1, "1-based ordinal of the table to extract")
	fs.BoolVar(&firstRow, "first-row-is-header", false, "Treat the first data row as column names")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setLevel(verbose)

	settings, err := config.LoadOrDefault(settingsPath)
	if err != nil {
		return err
	}

	diags, err := render.Render(snapshotPath, render.Params{
		TableNum:         tableNum,
		FirstRowIsHeader: firstRow,
	}, settings, out, nil)
	if err != nil {
		return err
	}
	printDiags(diags)
	return nil
}

func setLevel(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// printDiags writes one diagnostic per line on stdout. Diagnostics are
// data for the caller, not process failures, so they never change the exit
// code.
func printDiags(diags []diag.Diagnostic) {
	for _, d := range diags {
		if len(d.Params) == 0 {
			fmt.Println(d.Code)
			continue
		}
		fmt.Printf("%s %v\n", d.Code, d.Params)
	}
}
