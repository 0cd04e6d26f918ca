package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/molmez/cocokit/internal/imaging"
	"github.com/molmez/cocokit/internal/utils"
	"github.com/molmez/cocokit/internal/worker"
)

var convertOpts Options

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Re-encode every PNG under a directory tree as JPG",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runConvert(cmd.Context(), convertOpts)
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertOpts.Images, "images", "i", "", "Directory tree to convert")
	convertCmd.Flags().IntVarP(&convertOpts.Quality, "quality", "q", 100, "JPEG quality (1-100)")
	convertCmd.Flags().IntVarP(&convertOpts.Workers, "workers", "w", 0, "Parallel workers (default: CPU count)")

	convertCmd.MarkFlagRequired("images")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(ctx context.Context, opts Options) error {
	if err := validateConvertFlags(&opts); err != nil {
		return err
	}

	var pngs []string
	err := filepath.WalkDir(opts.Images, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".png") {
			pngs = append(pngs, path)
		}
		return nil
	})
	if err != nil {
		utils.ShowError("Failed to walk images directory", err)
		return err
	}
	if len(pngs) == 0 {
		fmt.Fprintf(os.Stderr, "🏁 Nothing to convert under %s\n", opts.Images)
		return nil
	}

	bar := progressbar.NewOptions(len(pngs),
		progressbar.OptionSetDescription("🎨 Converting to JPG"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	pool := worker.New(ctx, resolveWorkers(opts.Workers))
	for _, src := range pngs {
		src := src
		dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".jpg"
		ok := pool.Submit(func(_ context.Context) error {
			if err := imaging.ConvertToJPEG(src, dst, opts.Quality); err != nil {
				return errors.Wrapf(err, "convert %s", src)
			}
			bar.Add(1)
			return nil
		})
		if !ok {
			break
		}
	}
	if err := pool.Wait(); err != nil {
		utils.ShowError("Conversion failed", err)
		return err
	}
	bar.Finish()

	fmt.Fprintf(os.Stderr, "\n🏁 Converted %d PNG files. Sources are untouched.\n", len(pngs))
	return nil
}

func validateConvertFlags(opts *Options) error {
	info, err := os.Stat(opts.Images)
	if err != nil {
		utils.ShowError("Unable to access images directory", err)
		return err
	}
	if !info.IsDir() {
		err := fmt.Errorf("%s is not a directory", opts.Images)
		utils.ShowError("Configuration Error", err)
		return err
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		err := fmt.Errorf("quality must be between 1 and 100, got %d", opts.Quality)
		utils.ShowError("Configuration Error", err)
		return err
	}
	return nil
}
