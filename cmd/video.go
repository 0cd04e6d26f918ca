package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/molmez/cocokit/internal/imaging"
	"github.com/molmez/cocokit/internal/utils"
)

var videoOpts Options

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Assemble a sorted image sequence into an MP4",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runVideo(cmd.Context(), videoOpts)
	},
}

func init() {
	videoCmd.Flags().StringVarP(&videoOpts.Images, "images", "i", "", "Directory holding the frame sequence")
	videoCmd.Flags().StringVarP(&videoOpts.Output, "output", "o", "out.mp4", "Output video path")
	videoCmd.Flags().Float64Var(&videoOpts.FPS, "fps", 25, "Frames per second")
	videoCmd.Flags().IntVarP(&videoOpts.Width, "width", "W", 512, "Frame width in pixels")
	videoCmd.Flags().IntVarP(&videoOpts.Height, "height", "H", 512, "Frame height in pixels")

	videoCmd.MarkFlagRequired("images")
	rootCmd.AddCommand(videoCmd)
}

func runVideo(ctx context.Context, opts Options) error {
	if err := validateVideoFlags(&opts); err != nil {
		return err
	}

	files, err := utils.ListImages(opts.Images, "")
	if err != nil {
		utils.ShowError("Failed to list images", err)
		return err
	}
	if len(files) == 0 {
		err := fmt.Errorf("no image files under %s", opts.Images)
		utils.ShowError("Nothing to assemble", err)
		return err
	}

	writer, err := gocv.VideoWriterFile(opts.Output, "mp4v", opts.FPS, opts.Width, opts.Height, true)
	if err != nil {
		utils.ShowError("Failed to open video writer", err)
		return err
	}
	defer writer.Close()
	if !writer.IsOpened() {
		err := fmt.Errorf("video writer did not open for %s", opts.Output)
		utils.ShowError("Failed to open video writer", err)
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("🎞️  Encoding frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	written, skipped := 0, 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFrame(writer, f, opts.Width, opts.Height); err != nil {
			// A single bad frame should not sink the whole assembly.
			fmt.Fprintf(os.Stderr, "\n⚠️  Skipping %s: %v\n", filepath.Base(f), err)
			skipped++
			bar.Add(1)
			continue
		}
		written++
		bar.Add(1)
	}
	bar.Finish()

	fmt.Fprintf(os.Stderr, "\n🏁 Wrote %d frames to %s (%d skipped).\n", written, opts.Output, skipped)
	return nil
}

func writeFrame(writer *gocv.VideoWriter, path string, width, height int) error {
	img, err := imaging.ReadImage(path)
	if err != nil {
		return err
	}
	defer img.Close()

	frame := imaging.Resize(img, width, height)
	defer frame.Close()
	return writer.Write(frame)
}

func validateVideoFlags(opts *Options) error {
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
	if opts.FPS <= 0 {
		err := fmt.Errorf("fps must be positive, got %v", opts.FPS)
		utils.ShowError("Configuration Error", err)
		return err
	}
	if opts.Width < 1 || opts.Height < 1 {
		err := fmt.Errorf("frame size must be positive, got %dx%d", opts.Width, opts.Height)
		utils.ShowError("Configuration Error", err)
		return err
	}
	return nil
}
