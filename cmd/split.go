package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/molmez/cocokit/internal/coco"
	"github.com/molmez/cocokit/internal/utils"
)

var splitOpts Options

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Shard a COCO dataset into train and val sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runSplit(cmd.Context(), splitOpts)
	},
}

func init() {
	splitCmd.Flags().StringVarP(&splitOpts.Annotations, "annotations", "a", "", "Path to the COCO annotations JSON")
	splitCmd.Flags().StringVarP(&splitOpts.Images, "images", "i", "", "Directory holding the dataset rasters")
	splitCmd.Flags().StringVarP(&splitOpts.Output, "output", "o", "", "Directory to write the shards into")
	splitCmd.Flags().Float64VarP(&splitOpts.Ratio, "ratio", "r", 0.8, "Fraction of images that go to the train shard")
	splitCmd.Flags().Int64Var(&splitOpts.Seed, "seed", 0, "Shuffle seed, 0 picks one from the clock")

	splitCmd.MarkFlagRequired("annotations")
	splitCmd.MarkFlagRequired("images")
	splitCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(ctx context.Context, opts Options) error {
	if err := validateSplitFlags(&opts); err != nil {
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

	// Resolve the seed here so the summary can name it for reproducibility.
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	fmt.Fprintf(os.Stderr, "🔀 Splitting %d images at %.0f%%/%.0f%% (seed %d)\n",
		len(ds.Images), opts.Ratio*100, (1-opts.Ratio)*100, opts.Seed)

	res, err := coco.Split(ds, coco.SplitOptions{Ratio: opts.Ratio, Seed: opts.Seed})
	if err != nil {
		utils.ShowError("Split failed", err)
		return err
	}

	shards := []struct {
		name string
		ds   *coco.Dataset
	}{
		{"train", res.Train},
		{"val", res.Val},
	}

	bar := progressbar.NewOptions(len(ds.Images),
		progressbar.OptionSetDescription("📦 Moving rasters"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	// Rasters move first; the shard JSONs only go out once the files are in
	// their final homes.
	for _, shard := range shards {
		dstDir := filepath.Join(opts.Output, "images", shard.name)
		if err := utils.EnsureDir(dstDir); err != nil {
			utils.ShowError("Failed to create shard directory", err)
			return err
		}
		for _, img := range shard.ds.Images {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := filepath.Join(opts.Images, img.FileName)
			dst := filepath.Join(dstDir, img.FileName)
			if err := utils.EnsureDir(filepath.Dir(dst)); err != nil {
				utils.ShowError("Failed to create shard directory", err)
				return err
			}
			if err := utils.MoveFile(src, dst); err != nil {
				if os.IsNotExist(err) {
					// Reported again by the shard verification below.
					fmt.Fprintf(os.Stderr, "\n⚠️  Missing raster: %s\n", img.FileName)
					bar.Add(1)
					continue
				}
				utils.ShowError("Failed to move raster", err)
				return err
			}
			bar.Add(1)
		}
	}
	bar.Finish()

	annDir := filepath.Join(opts.Output, "annotations")
	if err := utils.EnsureDir(annDir); err != nil {
		utils.ShowError("Failed to create annotations directory", err)
		return err
	}
	for _, shard := range shards {
		data, err := coco.Encode(shard.ds)
		if err != nil {
			utils.ShowError("Failed to encode shard annotations", err)
			return err
		}
		path := filepath.Join(annDir, shard.name+".json")
		if err := utils.WriteFile(path, data, 0644); err != nil {
			utils.ShowError("Failed to write shard annotations", err)
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "\nSHARD\tIMAGES\tANNOTATIONS\tMISSING FILES")
	fmt.Fprintln(w, "-----\t------\t-----------\t-------------")
	for _, shard := range shards {
		missing := verifyShard(shard.name, shard.ds, filepath.Join(opts.Output, "images", shard.name))
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", shard.name, len(shard.ds.Images), len(shard.ds.Annotations), missing)
	}
	w.Flush()

	fmt.Fprintf(os.Stderr, "\n🏁 Split complete. Shards written to %s\n", annDir)
	return nil
}

// verifyShard re-checks a written shard: referential integrity and the
// presence of every referenced raster. Problems are reported, not fatal,
// since the shards are already on disk for inspection.
func verifyShard(name string, shard *coco.Dataset, imagesDir string) int {
	if err := shard.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  %s shard failed validation: %v\n", name, err)
	}
	missing := 0
	for _, img := range shard.Images {
		if _, err := os.Stat(filepath.Join(imagesDir, img.FileName)); err != nil {
			missing++
		}
	}
	return missing
}

func validateSplitFlags(opts *Options) error {
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

	if opts.Ratio <= 0 || opts.Ratio >= 1 {
		err := fmt.Errorf("ratio must be strictly between 0 and 1, got %v", opts.Ratio)
		utils.ShowError("Configuration Error", err)
		return err
	}
	return nil
}
