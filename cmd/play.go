package cmd

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/molmez/cocokit/internal/coco"
	"github.com/molmez/cocokit/internal/imaging"
	"github.com/molmez/cocokit/internal/stream"
	"github.com/molmez/cocokit/internal/utils"
)

var playOpts Options

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a labelled image sequence with its boxes drawn on",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runPlay(cmd.Context(), playOpts)
	},
}

func init() {
	playCmd.Flags().StringVarP(&playOpts.Annotations, "annotations", "a", "", "Path to the COCO annotations JSON")
	playCmd.Flags().StringVarP(&playOpts.Images, "images", "i", "", "Directory holding the frame sequence")
	playCmd.Flags().StringVarP(&playOpts.Format, "format", "f", "png", "Frame file format: png, jpg")
	playCmd.Flags().Float64Var(&playOpts.FPS, "fps", 24, "Playback frames per second")
	playCmd.Flags().StringVar(&playOpts.Listen, "listen", "", "Serve an MJPEG stream on this address instead of opening a window")

	playCmd.MarkFlagRequired("annotations")
	playCmd.MarkFlagRequired("images")
	rootCmd.AddCommand(playCmd)
}

// boxColor is the overlay color for boxes and labels.
var boxColor = color.RGBA{B: 255}

func runPlay(ctx context.Context, opts Options) error {
	if err := validatePlayFlags(&opts); err != nil {
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

	files, err := utils.ListImages(opts.Images, opts.Format)
	if err != nil {
		utils.ShowError("Failed to list frames", err)
		return err
	}
	if len(files) == 0 {
		err := fmt.Errorf("no .%s frames under %s", opts.Format, opts.Images)
		utils.ShowError("Nothing to play", err)
		return err
	}

	boxes := boxesByFile(ds)

	if opts.Listen != "" {
		return servePlayback(ctx, files, boxes, opts)
	}
	return windowPlayback(ctx, files, boxes, opts)
}

// windowPlayback shows the sequence once in a local OpenCV window.
// q or ESC stops early.
func windowPlayback(ctx context.Context, files []string, boxes map[string][]imaging.Box, opts Options) error {
	window := gocv.NewWindow("cocokit play")
	defer window.Close()

	delay := int(1000 / opts.FPS)
	if delay < 1 {
		delay = 1
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		mat, err := imaging.ReadImage(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Skipping %s: %v\n", filepath.Base(f), err)
			continue
		}
		imaging.DrawBoxes(&mat, boxes[filepath.Base(f)], boxColor)
		window.IMShow(mat)
		key := window.WaitKey(delay)
		mat.Close()
		if key == 'q' || key == 27 {
			break
		}
	}
	return nil
}

// servePlayback loops the sequence as an MJPEG stream until the context is
// cancelled, so a browser can connect at any point.
func servePlayback(ctx context.Context, files []string, boxes map[string][]imaging.Box, opts Options) error {
	srv := stream.New(opts.Listen)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(ctx) }()
	fmt.Fprintf(os.Stderr, "📡 Serving MJPEG stream on http://%s (Ctrl+C to stop)\n", opts.Listen)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / opts.FPS))
	defer ticker.Stop()

	for {
		for _, f := range files {
			select {
			case <-ctx.Done():
				return <-errc
			case err := <-errc:
				return err
			case <-ticker.C:
			}
			frame, err := renderFrame(f, boxes[filepath.Base(f)])
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Skipping %s: %v\n", filepath.Base(f), err)
				continue
			}
			srv.Publish(frame)
		}
	}
}

// renderFrame reads one frame, burns its boxes in, and returns JPEG bytes.
func renderFrame(path string, boxes []imaging.Box) ([]byte, error) {
	mat, err := imaging.ReadImage(path)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	imaging.DrawBoxes(&mat, boxes, boxColor)
	return imaging.EncodeJPEG(mat, 90)
}

// datasetBoxes maps image id to the labelled boxes drawn over that image.
func datasetBoxes(ds *coco.Dataset) map[int][]imaging.Box {
	names := make(map[int]string, len(ds.Categories))
	for _, c := range ds.Categories {
		names[c.ID] = c.Name
	}
	boxes := make(map[int][]imaging.Box)
	for _, ann := range ds.Annotations {
		if len(ann.BBox) != 4 {
			continue
		}
		x := int(math.Round(ann.BBox[0]))
		y := int(math.Round(ann.BBox[1]))
		w := int(math.Round(ann.BBox[2]))
		h := int(math.Round(ann.BBox[3]))
		boxes[ann.ImageID] = append(boxes[ann.ImageID], imaging.Box{
			Rect:  image.Rect(x, y, x+w, y+h),
			Label: names[ann.CategoryID],
		})
	}
	return boxes
}

// boxesByFile reindexes datasetBoxes by the raster's base file name, which is
// how frames on disk are matched back to their annotations.
func boxesByFile(ds *coco.Dataset) map[string][]imaging.Box {
	byID := datasetBoxes(ds)
	byFile := make(map[string][]imaging.Box, len(byID))
	for _, img := range ds.Images {
		if b := byID[img.ID]; len(b) > 0 {
			byFile[filepath.Base(img.FileName)] = b
		}
	}
	return byFile
}

func validatePlayFlags(opts *Options) error {
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

	opts.Format = strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	switch opts.Format {
	case "png", "jpg", "jpeg":
	default:
		err := fmt.Errorf("format must be png or jpg, got %q", opts.Format)
		utils.ShowError("Configuration Error", err)
		return err
	}

	if opts.FPS <= 0 {
		err := fmt.Errorf("fps must be positive, got %v", opts.FPS)
		utils.ShowError("Configuration Error", err)
		return err
	}
	return nil
}
