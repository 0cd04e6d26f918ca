package cmd

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/molmez/cocokit/internal/coco"
	"github.com/molmez/cocokit/internal/imaging"
	"github.com/molmez/cocokit/internal/utils"
	"github.com/molmez/cocokit/internal/worker"
)

var resizeOpts Options

var resizeCmd = &cobra.Command{
	Use:   "resize",
	Short: "Rescale a COCO dataset's rasters and annotations to a new resolution",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runResize(cmd.Context(), resizeOpts)
	},
}

func init() {
	resizeCmd.Flags().StringVarP(&resizeOpts.Annotations, "annotations", "a", "", "Path to the COCO annotations JSON")
	resizeCmd.Flags().StringVarP(&resizeOpts.Images, "images", "i", "", "Directory holding the dataset rasters")
	resizeCmd.Flags().StringVarP(&resizeOpts.Output, "output", "o", "", "Directory to write the adjusted dataset into")
	resizeCmd.Flags().IntVarP(&resizeOpts.Width, "width", "W", 0, "Target width in pixels (requires --height)")
	resizeCmd.Flags().IntVarP(&resizeOpts.Height, "height", "H", 0, "Target height in pixels (requires --width)")
	resizeCmd.Flags().Float64VarP(&resizeOpts.Scale, "scale", "s", 0, "Uniform scale factor, e.g. 0.5 halves both axes")
	resizeCmd.Flags().StringVar(&resizeOpts.Segmentation, "segmentation", "reject", "RLE segmentation policy: reject, rescale")
	resizeCmd.Flags().IntVarP(&resizeOpts.Workers, "workers", "w", 0, "Parallel raster workers (default: CPU count)")
	resizeCmd.Flags().BoolVar(&resizeOpts.AnnotationsOnly, "annotations-only", false, "Adjust the JSON without touching any raster")
	resizeCmd.Flags().BoolVar(&resizeOpts.InPlace, "in-place", false, "Overwrite the rasters and annotations where they are")
	resizeCmd.Flags().BoolVar(&resizeOpts.Preview, "preview", false, "Write a preview JPEG with the adjusted boxes drawn on")

	resizeCmd.MarkFlagRequired("annotations")
	rootCmd.AddCommand(resizeCmd)
}

func runResize(ctx context.Context, opts Options) error {
	if err := validateResizeFlags(&opts); err != nil {
		return err
	}

	ds, err := coco.Load(opts.Annotations)
	if err != nil {
		utils.ShowError("Failed to load annotations", err)
		return err
	}

	policy, err := coco.ParseRLEPolicy(opts.Segmentation)
	if err != nil {
		utils.ShowError("Configuration Error", err)
		return err
	}

	fmt.Fprintf(os.Stderr, "🔍 Adjusting %d images and %d annotations...\n", len(ds.Images), len(ds.Annotations))

	adjusted, err := coco.Adjust(ds, coco.AdjustOptions{
		Width:  opts.Width,
		Height: opts.Height,
		Scale:  opts.Scale,
		RLE:    policy,
	})
	if err != nil {
		utils.ShowError("Annotation adjustment failed", err)
		return err
	}

	imagesDir, annPath := resizeOutputPaths(opts)

	if !opts.AnnotationsOnly {
		if err := resizeRasters(ctx, adjusted, opts, imagesDir); err != nil {
			utils.ShowError("Raster resize failed", err)
			return err
		}
	}

	// The JSON goes out strictly after every raster succeeded, so an
	// interrupted run never leaves annotations pointing at stale pixels.
	data, err := coco.Encode(adjusted)
	if err != nil {
		utils.ShowError("Failed to encode annotations", err)
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(annPath)); err != nil {
		utils.ShowError("Failed to create output directory", err)
		return err
	}
	if err := utils.WriteFile(annPath, data, 0644); err != nil {
		utils.ShowError("Failed to write annotations", err)
		return err
	}

	if opts.Preview && !opts.AnnotationsOnly {
		if err := writeResizePreview(adjusted, imagesDir, annPath); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Preview skipped: %v\n", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n🏁 Resize complete. %d images and %d annotations adjusted.\n",
		len(adjusted.Images), len(adjusted.Annotations))
	fmt.Fprintf(os.Stderr, "📄 Annotations written to %s\n", annPath)
	return nil
}

// resizeRasters rescales every raster to its image's adjusted declared size.
func resizeRasters(ctx context.Context, adjusted *coco.Dataset, opts Options, imagesDir string) error {
	bar := progressbar.NewOptions(len(adjusted.Images),
		progressbar.OptionSetDescription("🖼️  Resizing rasters"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	pool := worker.New(ctx, resolveWorkers(opts.Workers))
	for _, img := range adjusted.Images {
		img := img
		src := filepath.Join(opts.Images, img.FileName)
		dst := filepath.Join(imagesDir, img.FileName)
		ok := pool.Submit(func(_ context.Context) error {
			if err := utils.EnsureDir(filepath.Dir(dst)); err != nil {
				return err
			}
			if err := imaging.ResizeFile(src, dst, img.Width, img.Height); err != nil {
				return errors.Wrapf(err, "resize %s", img.FileName)
			}
			bar.Add(1)
			return nil
		})
		if !ok {
			break
		}
	}
	if err := pool.Wait(); err != nil {
		return err
	}
	bar.Finish()
	return nil
}

// resizeOutputPaths resolves where rasters and annotations land for the
// chosen output mode.
func resizeOutputPaths(opts Options) (imagesDir, annPath string) {
	if opts.InPlace {
		return opts.Images, opts.Annotations
	}
	stem := annotationsStem(opts.Annotations)
	if opts.Output != "" {
		imagesDir = filepath.Join(opts.Output, "images")
		annPath = filepath.Join(opts.Output, "annotations", stem+"_adjusted.json")
		return imagesDir, annPath
	}
	// Annotations-only run with no output directory: the JSON lands next to
	// the input under a new name.
	annPath = filepath.Join(filepath.Dir(opts.Annotations), stem+"_adjusted.json")
	return "", annPath
}

func annotationsStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeResizePreview draws the adjusted boxes over the first annotated image
// and drops a preview JPEG next to the output annotations.
func writeResizePreview(ds *coco.Dataset, imagesDir, annPath string) error {
	boxes := datasetBoxes(ds)
	for _, img := range ds.Images {
		if len(boxes[img.ID]) == 0 {
			continue
		}
		previewPath := filepath.Join(filepath.Dir(annPath), "preview.jpg")
		src := filepath.Join(imagesDir, img.FileName)
		if err := drawBoxesToFile(src, previewPath, boxes[img.ID]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "🖼️  Preview written to %s\n", previewPath)
		return nil
	}
	return errors.New("no annotated image to preview")
}

func drawBoxesToFile(src, dst string, boxes []imaging.Box) error {
	mat, err := imaging.ReadImage(src)
	if err != nil {
		return err
	}
	defer mat.Close()

	imaging.DrawBoxes(&mat, boxes, color.RGBA{G: 255})
	data, err := imaging.EncodeJPEG(mat, 95)
	if err != nil {
		return err
	}
	return utils.WriteFile(dst, data, 0644)
}

func validateResizeFlags(opts *Options) error {
	info, err := os.Stat(opts.Annotations)
	if err != nil {
		if os.IsNotExist(err) {
			utils.ShowError("Annotations file does not exist", err)
			return err
		}
		utils.ShowError("Unable to access annotations file", err)
		return err
	}
	if info.IsDir() {
		err := fmt.Errorf("%s is a directory, expected a JSON file", opts.Annotations)
		utils.ShowError("Configuration Error", err)
		return err
	}

	hasTarget := opts.Width != 0 || opts.Height != 0
	if hasTarget && (opts.Width <= 0 || opts.Height <= 0) {
		err := fmt.Errorf("--width and --height must be set together and positive, got %dx%d", opts.Width, opts.Height)
		utils.ShowError("Configuration Error", err)
		return err
	}
	if hasTarget == (opts.Scale != 0) {
		err := fmt.Errorf("pass either --width/--height or --scale, not both and not neither")
		utils.ShowError("Configuration Error", err)
		return err
	}

	if opts.InPlace && opts.Output != "" {
		err := fmt.Errorf("--in-place and --output are mutually exclusive")
		utils.ShowError("Configuration Error", err)
		return err
	}

	if !opts.AnnotationsOnly {
		if opts.Images == "" {
			err := fmt.Errorf("--images is required unless --annotations-only is set")
			utils.ShowError("Configuration Error", err)
			return err
		}
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
		if !opts.InPlace && opts.Output == "" {
			err := fmt.Errorf("pass --output or --in-place to say where the rasters go")
			utils.ShowError("Configuration Error", err)
			return err
		}
	}

	return nil
}
