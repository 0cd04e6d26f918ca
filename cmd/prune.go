package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/molmez/cocokit/internal/coco"
	"github.com/molmez/cocokit/internal/utils"
)

var pruneOpts Options

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Move unlabelled images to _trash and drop them from the annotations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPrune(cmd.Context(), pruneOpts)
	},
}

func init() {
	pruneCmd.Flags().StringVarP(&pruneOpts.Annotations, "annotations", "a", "", "Path to the COCO annotations JSON")
	pruneCmd.Flags().StringVarP(&pruneOpts.Images, "images", "i", "", "Directory holding the dataset rasters")

	pruneCmd.MarkFlagRequired("annotations")
	pruneCmd.MarkFlagRequired("images")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(ctx context.Context, opts Options) error {
	if err := validatePruneFlags(&opts); err != nil {
		return err
	}

	ds, err := coco.Load(opts.Annotations)
	if err != nil {
		utils.ShowError("Failed to load annotations", err)
		return err
	}
	if err := ds.Validate(); err != nil {
		utils.ShowError("Input dataset failed validation", err)
		return err
	}

	unlabelled := ds.Unlabelled()
	fmt.Fprintf(os.Stderr, "🔍 Found %d unlabelled images out of %d\n", len(unlabelled), len(ds.Images))

	trashDir := filepath.Join(opts.Images, "_trash")
	if err := utils.EnsureDir(trashDir); err != nil {
		utils.ShowError("Failed to create trash directory", err)
		return err
	}

	drop := make(map[int]bool, len(unlabelled))
	bar := progressbar.NewOptions(len(unlabelled),
		progressbar.OptionSetDescription("🗑️  Trashing rasters"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	for _, img := range unlabelled {
		if err := ctx.Err(); err != nil {
			return err
		}
		drop[img.ID] = true
		src := filepath.Join(opts.Images, img.FileName)
		dst := filepath.Join(trashDir, filepath.Base(img.FileName))
		if err := utils.MoveFile(src, dst); err != nil {
			if os.IsNotExist(err) {
				// Already gone; it leaves the JSON either way.
				bar.Add(1)
				continue
			}
			utils.ShowError("Failed to move raster to trash", err)
			return err
		}
		bar.Add(1)
	}
	bar.Finish()

	// Images whose raster has vanished get dropped too, so the output JSON
	// only ever references files that exist.
	missing := 0
	for _, img := range ds.Images {
		if drop[img.ID] {
			continue
		}
		if _, err := os.Stat(filepath.Join(opts.Images, img.FileName)); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "⚠️  Dropping image %d, missing raster %s\n", img.ID, img.FileName)
			drop[img.ID] = true
			missing++
		}
	}

	pruned := ds.DropImages(drop)
	data, err := coco.Encode(pruned)
	if err != nil {
		utils.ShowError("Failed to encode annotations", err)
		return err
	}
	outPath := filepath.Join(filepath.Dir(opts.Annotations), "new_annotations.json")
	if err := utils.WriteFile(outPath, data, 0644); err != nil {
		utils.ShowError("Failed to write annotations", err)
		return err
	}

	fmt.Fprintf(os.Stderr, "\n🏁 Prune complete. Trashed %d unlabelled, dropped %d missing, kept %d images / %d annotations.\n",
		len(unlabelled), missing, len(pruned.Images), len(pruned.Annotations))
	fmt.Fprintf(os.Stderr, "📄 Annotations written to %s\n", outPath)
	return nil
}

func validatePruneFlags(opts *Options) error {
	info, err := os.Stat(opts.Annotations)
	if err != nil {
		utils.ShowError("Unable to access annotations file", err)
		return err
	}
	if info.IsDir() {
		err := fmt.Errorf("%s is a directory, expected a JSON file", opts.Annotations)
		utils.ShowError("Configuration Error", err)
		return err
	}

	info, err = os.Stat(opts.Images)
	if err != nil {
		utils.ShowError("Unable to access images directory", err)
		return err
	}
	if !info.IsDir() {
		err := fmt.Errorf("%s is not a directory", opts.Images)
		utils.ShowError("Configuration Error", err)
		return err
	}
	return nil
}
