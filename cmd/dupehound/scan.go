package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/akarpov/dupehound/internal/dupescan"
	"github.com/akarpov/dupehound/internal/filter"
	"github.com/akarpov/dupehound/internal/hasher"
	"github.com/akarpov/dupehound/internal/progress"
	"github.com/akarpov/dupehound/internal/types"
)

// pollInterval bounds how often the CLI reads progress; the engine is
// polled, never called back per file.
const pollInterval = 100 * time.Millisecond

// scanOptions holds CLI flags shared by the scan and remove commands.
type scanOptions struct {
	minSizeStr string
	maxSizeStr string
	exts       []string
	excludes   []string
	algoStr    string
	keepStr    string
	workers    int
	skipHidden bool
	skipSystem bool
	cacheFile  string
	verify     bool
	noProgress bool
	jsonOut    bool
}

// addScanFlags binds the shared scan flag surface to cmd.
func addScanFlags(cmd *cobra.Command, opts *scanOptions) {
	cmd.Flags().StringVarP(&opts.minSizeStr, "min-size", "m", opts.minSizeStr, "Minimum file size (e.g., 100, 1K, 10M, 1G)")
	cmd.Flags().StringVarP(&opts.maxSizeStr, "max-size", "M", opts.maxSizeStr, "Maximum file size, 0 = unbounded")
	cmd.Flags().StringSliceVarP(&opts.exts, "ext", "x", nil, "Only scan files with these extensions (e.g., jpg,png)")
	cmd.Flags().StringSliceVarP(&opts.excludes, "exclude", "e", nil, "Glob patterns to exclude (matched against name and path)")
	cmd.Flags().StringVarP(&opts.algoStr, "algorithm", "a", opts.algoStr, "Hash algorithm: md5, sha1 or sha256")
	cmd.Flags().StringVarP(&opts.keepStr, "keep", "k", opts.keepStr, "Which duplicate to keep: oldest or newest")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers")
	cmd.Flags().BoolVar(&opts.skipHidden, "skip-hidden", false, "Skip hidden files")
	cmd.Flags().BoolVar(&opts.skipSystem, "skip-system", false, "Skip system files (Windows attribute; no effect elsewhere)")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to digest cache file (enables caching)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Byte-compare matching files instead of trusting the digest alone")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
}

// newScanCmd creates the scan subcommand.
func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		minSizeStr: "0",
		maxSizeStr: "0",
		algoStr:    "sha256",
		keepStr:    "oldest",
		workers:    runtime.NumCPU(),
	}

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Find duplicate files under a directory",
		Long: `Scans a directory tree for files with identical content.

Files are first grouped by size, then confirmed as duplicates by content
hash. Each group of duplicates designates one file to keep, selected by
--keep; the rest are reclaimable. Use Ctrl-C to cancel a running scan
and get the groups resolved so far.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args[0], opts)
		},
	}

	addScanFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit the scan result as JSON")

	return cmd
}

// buildConfig translates CLI flags into an engine scan request.
func buildConfig(root string, opts *scanOptions) (dupescan.Config, error) {
	var cfg dupescan.Config

	minSize, err := parseSize(opts.minSizeStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid --min-size: %w", err)
	}
	maxSize, err := parseSize(opts.maxSizeStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid --max-size: %w", err)
	}
	algo, err := hasher.ParseAlgorithm(opts.algoStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid --algorithm: %w", err)
	}
	keep, err := types.ParseKeepPolicy(opts.keepStr)
	if err != nil {
		return cfg, fmt.Errorf("invalid --keep: %w", err)
	}

	return dupescan.Config{
		Root: root,
		Filter: filter.Config{
			Extensions: opts.exts,
			MinSize:    minSize,
			MaxSize:    maxSize,
			Excludes:   opts.excludes,
			SkipHidden: opts.skipHidden,
			SkipSystem: opts.skipSystem,
		},
		Algorithm: algo,
		Keep:      keep,
		Workers:   opts.workers,
		CacheFile: opts.cacheFile,
		Verify:    opts.verify,
	}, nil
}

// executeScan runs one scan to completion: starts the controller, wires
// Ctrl-C to cancellation, and polls progress into the bar.
func executeScan(root string, opts *scanOptions) (*types.ScanResult, error) {
	cfg, err := buildConfig(root, opts)
	if err != nil {
		return nil, err
	}

	// Clear the progress bar line before printing to avoid visual collision.
	cfg.OnError = func(rec types.ErrorRecord) {
		fmt.Fprintf(os.Stderr, "\r\033[Kerror: %v\n", rec)
	}

	ctrl := dupescan.NewController()
	if err := ctrl.Start(cfg); err != nil {
		return nil, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		ctrl.Cancel()
	}()

	bar := progress.NewBar(!opts.noProgress, -1)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
poll:
	for {
		select {
		case <-ctrl.Done():
			break poll
		case <-ticker.C:
			bar.Describe(ctrl.Progress())
		}
	}
	bar.Finish(ctrl.Progress())

	return ctrl.Wait(), nil
}

// runScan executes the scan command.
func runScan(root string, opts *scanOptions) error {
	res, err := executeScan(root, opts)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printReport(res)
	}

	if res.Status == types.StatusFailed {
		return errors.New(res.FailReason)
	}
	return nil
}

// printReport renders the duplicate groups for a terminal.
func printReport(res *types.ScanResult) {
	header := color.New(color.FgCyan, color.Bold)
	keepMark := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	if len(res.Groups) == 0 {
		fmt.Println("No duplicates found.")
	} else {
		for _, g := range res.Groups {
			header.Printf("group %d: %d files of %s (%s:%s)\n",
				g.ID, len(g.Files), humanize.IBytes(uint64(g.Size)),
				g.Algorithm, shortDigest(g.Digest))
			for _, f := range g.Files {
				if f == g.Keep {
					keepMark.Printf("  keep  %s\n", f.Path)
				} else {
					fmt.Printf("        %s\n", f.Path)
				}
			}
		}
		fmt.Printf("\n%d duplicate groups, %s reclaimable\n",
			len(res.Groups), humanize.IBytes(res.WastedBytes()))
	}

	if n := res.ErrorCount(); n > 0 {
		warn.Fprintf(os.Stderr, "%d files could not be scanned\n", n)
	}
	if res.Status == types.StatusCancelled {
		warn.Fprintln(os.Stderr, "scan cancelled, results are partial")
	}
}
