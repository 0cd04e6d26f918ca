package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateResizeFlags(t *testing.T) {
	// Create a temp file for valid input
	tmpFile, err := os.CreateTemp("", "annotations*.json")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	// Create a temp dir standing in for the images directory
	tmpDir, err := os.MkdirTemp("", "images")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name: "Valid scale run",
			opts: Options{
				Annotations: tmpFile.Name(),
				Images:      tmpDir,
				Output:      filepath.Join(tmpDir, "out"),
				Scale:       0.5,
			},
			wantErr: false,
		},
		{
			name: "Valid absolute target run",
			opts: Options{
				Annotations: tmpFile.Name(),
				Images:      tmpDir,
				Width:       512,
				Height:      512,
				InPlace:     true,
			},
			wantErr: false,
		},
		{
			name: "Valid annotations-only run without output",
			opts: Options{
				Annotations:     tmpFile.Name(),
				Scale:           2.0,
				AnnotationsOnly: true,
			},
			wantErr: false,
		},
		{
			name: "Annotations file does not exist",
			opts: Options{
				Annotations: "nonexistent.json",
				Scale:       0.5,
			},
			wantErr: true,
		},
		{
			name: "Annotations path is a directory",
			opts: Options{
				Annotations: tmpDir,
				Scale:       0.5,
			},
			wantErr: true,
		},
		{
			name: "Width without height",
			opts: Options{
				Annotations:     tmpFile.Name(),
				Width:           512,
				AnnotationsOnly: true,
			},
			wantErr: true,
		},
		{
			name: "Scale and absolute target together",
			opts: Options{
				Annotations:     tmpFile.Name(),
				Width:           512,
				Height:          512,
				Scale:           0.5,
				AnnotationsOnly: true,
			},
			wantErr: true,
		},
		{
			name: "No target at all",
			opts: Options{
				Annotations:     tmpFile.Name(),
				AnnotationsOnly: true,
			},
			wantErr: true,
		},
		{
			name: "In-place and output together",
			opts: Options{
				Annotations: tmpFile.Name(),
				Images:      tmpDir,
				Scale:       0.5,
				InPlace:     true,
				Output:      "out",
			},
			wantErr: true,
		},
		{
			name: "Raster run without images directory",
			opts: Options{
				Annotations: tmpFile.Name(),
				Scale:       0.5,
				Output:      "out",
			},
			wantErr: true,
		},
		{
			name: "Raster run without a destination",
			opts: Options{
				Annotations: tmpFile.Name(),
				Images:      tmpDir,
				Scale:       0.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Redirect stderr to discard the error boxes during this sub-test
			oldStderr := os.Stderr
			r, w, _ := os.Pipe()
			os.Stderr = w

			if err := validateResizeFlags(&tt.opts); (err != nil) != tt.wantErr {
				t.Errorf("validateResizeFlags() error = %v, wantErr %v", err, tt.wantErr)
			}

			// Restore stderr and close the pipe
			w.Close()
			os.Stderr = oldStderr
			r.Close()
		})
	}
}

func TestResizeOutputPaths(t *testing.T) {
	tests := []struct {
		name          string
		opts          Options
		wantImagesDir string
		wantAnnPath   string
	}{
		{
			name: "In-place targets the inputs",
			opts: Options{
				Annotations: "/data/ann/instances.json",
				Images:      "/data/images",
				InPlace:     true,
			},
			wantImagesDir: "/data/images",
			wantAnnPath:   "/data/ann/instances.json",
		},
		{
			name: "Output directory gets the standard layout",
			opts: Options{
				Annotations: "/data/ann/instances.json",
				Images:      "/data/images",
				Output:      "/out",
			},
			wantImagesDir: filepath.Join("/out", "images"),
			wantAnnPath:   filepath.Join("/out", "annotations", "instances_adjusted.json"),
		},
		{
			name: "Annotations-only lands next to the input",
			opts: Options{
				Annotations: "/data/ann/instances.json",
			},
			wantImagesDir: "",
			wantAnnPath:   filepath.Join("/data/ann", "instances_adjusted.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imagesDir, annPath := resizeOutputPaths(tt.opts)
			if imagesDir != tt.wantImagesDir {
				t.Errorf("imagesDir = %q, want %q", imagesDir, tt.wantImagesDir)
			}
			if annPath != tt.wantAnnPath {
				t.Errorf("annPath = %q, want %q", annPath, tt.wantAnnPath)
			}
		})
	}
}

func TestAnnotationsStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/ann/instances_default.json", "instances_default"},
		{"train.json", "train"},
		{"noextension", "noextension"},
	}
	for _, tt := range tests {
		if got := annotationsStem(tt.path); got != tt.want {
			t.Errorf("annotationsStem(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResolveWorkers(t *testing.T) {
	if got := resolveWorkers(4); got != 4 {
		t.Errorf("Flag value should win, got %d", got)
	}

	t.Setenv("COCOKIT_WORKERS", "3")
	if got := resolveWorkers(0); got != 3 {
		t.Errorf("Expected the environment fallback 3, got %d", got)
	}

	t.Setenv("COCOKIT_WORKERS", "not-a-number")
	if got := resolveWorkers(0); got != 0 {
		t.Errorf("Garbage environment value should fall through to 0, got %d", got)
	}
}
