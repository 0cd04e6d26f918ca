package coco

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleExport = `{
	"licenses": [{"name": "", "id": 0, "url": ""}],
	"info": {"contributor": "", "date_created": "", "description": "", "url": "", "version": "", "year": ""},
	"categories": [{"id": 1, "name": "drone", "supercategory": ""}],
	"images": [{"id": 1, "width": 1000, "height": 800, "file_name": "frame_000001.png", "license": 0, "flickr_url": "", "coco_url": "", "date_captured": 0}],
	"annotations": [{"id": 1, "image_id": 1, "category_id": 1, "segmentation": [], "area": 32000.0, "bbox": [100.0, 80.0, 200.0, 160.0], "iscrowd": 0, "attributes": {"occluded": false}}]
}`

func TestLoadParsesExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances_default.json")
	if err := os.WriteFile(path, []byte(sampleExport), 0644); err != nil {
		t.Fatal(err)
	}

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(ds.Images) != 1 || len(ds.Annotations) != 1 || len(ds.Categories) != 1 {
		t.Fatalf("tables lost entries: %d images, %d annotations, %d categories",
			len(ds.Images), len(ds.Annotations), len(ds.Categories))
	}
	if ds.Images[0].Width != 1000 || ds.Images[0].Height != 800 {
		t.Errorf("image dimensions wrong: %dx%d", ds.Images[0].Width, ds.Images[0].Height)
	}
	if ds.Annotations[0].BBox[2] != 200 {
		t.Errorf("bbox wrong: %v", ds.Annotations[0].BBox)
	}
	if len(ds.Licenses) == 0 || len(ds.Info) == 0 {
		t.Error("licenses/info blobs were dropped")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected the OS error to surface, got %v", err)
	}
}

func TestDecodeMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"images": [`},
		{"missing images", `{"annotations": [], "categories": []}`},
		{"missing annotations", `{"images": [], "categories": []}`},
		{"missing categories", `{"images": [], "annotations": []}`},
		{"wrong table type", `{"images": {}, "annotations": [], "categories": []}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("Expected malformed input, got %v", err)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	ds, err := Decode([]byte(sampleExport))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	data, err := Encode(ds)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatalf("re-Decode failed: %v", err)
	}
	if len(back.Images) != 1 || back.Images[0].FileName != "frame_000001.png" {
		t.Errorf("images did not survive: %+v", back.Images)
	}

	// Marshal compacts whitespace inside raw blocks, so compare structurally.
	var got, want interface{}
	if err := json.Unmarshal(back.Licenses, &got); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(ds.Licenses, &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("licenses drifted: %s vs %s", back.Licenses, ds.Licenses)
	}
}
