package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/akarpov/dupehound/internal/remover"
	"github.com/akarpov/dupehound/internal/types"
)

// removeOptions extends the scan flags with removal controls.
type removeOptions struct {
	scanOptions
	dryRun  bool
	force   bool
	verbose bool
}

// newRemoveCmd creates the remove subcommand.
func newRemoveCmd() *cobra.Command {
	opts := &removeOptions{
		scanOptions: scanOptions{
			minSizeStr: "0",
			maxSizeStr: "0",
			algoStr:    "sha256",
			keepStr:    "oldest",
			workers:    runtime.NumCPU(),
		},
	}

	cmd := &cobra.Command{
		Use:   "remove [path]",
		Short: "Find duplicate files and delete all but one per group",
		Long: `Scans for duplicates and permanently deletes the disposable members
of each group, keeping the member selected by --keep.

Deletion is permanent. Use --dry-run to preview what would be removed;
actual removal requires --force. Files locked by another process or
modified since the scan are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRemove(args[0], opts)
		},
	}

	addScanFlags(cmd, &opts.scanOptions)
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Preview removals without deleting anything")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Actually delete files")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show individual file operations")

	return cmd
}

// drainErrors consumes errors from a channel and writes them to stderr.
// Clears the progress bar line before printing to avoid visual collision.
func drainErrors(errs <-chan error) {
	for err := range errs {
		fmt.Fprintf(os.Stderr, "\r\033[Kerror: %v\n", err)
	}
}

// runRemove executes the remove pipeline: scan, then delete.
func runRemove(root string, opts *removeOptions) error {
	if !opts.dryRun && !opts.force {
		return errors.New("refusing to delete without --force (use --dry-run to preview)")
	}

	res, err := executeScan(root, &opts.scanOptions)
	if err != nil {
		return err
	}
	if res.Status == types.StatusFailed {
		return errors.New(res.FailReason)
	}
	if len(res.Groups) == 0 {
		fmt.Println("No duplicates found.")
		return nil
	}

	errCh := make(chan error, 100)
	go drainErrors(errCh)
	defer close(errCh)

	remover.New(res.Groups, opts.dryRun, opts.verbose, !opts.noProgress, errCh).Run()

	return nil
}
