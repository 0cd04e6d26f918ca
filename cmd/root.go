package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

// Options holds shared configuration for the dataset subcommands
type Options struct {
	Annotations     string
	Images          string
	Output          string
	Width           int
	Height          int
	Scale           float64
	Segmentation    string
	Workers         int
	AnnotationsOnly bool
	InPlace         bool
	Preview         bool
	Ratio           float64
	Seed            int64
	Quality         int
	FPS             float64
	Format          string
	Listen          string
}

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "cocokit",
	Short:   "COCO Dataset Toolkit for CVAT exports",
	Version: Version, // This enables the --version flag
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkers picks the worker count: the flag when set, then the
// COCOKIT_WORKERS environment variable, then 0 so the pool sizes itself to
// the machine's CPU count.
func resolveWorkers(flagValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv("COCOKIT_WORKERS"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
