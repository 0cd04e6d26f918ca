package coco

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSegmentationJSONForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string // expected re-encoding; empty means same as in
		form func(s Segmentation) bool
	}{
		{
			name: "polygon list",
			in:   `[[10,20,30,20,30,40]]`,
			form: func(s Segmentation) bool { return len(s.Polygons) == 1 && s.RLE == nil },
		},
		{
			name: "empty list stays a list",
			in:   `[]`,
			form: func(s Segmentation) bool { return s.Empty() },
		},
		{
			name: "uncompressed rle",
			in:   `{"size":[3,3],"counts":[1,2,6]}`,
			form: func(s Segmentation) bool { return s.RLE != nil && !s.RLE.Compressed() },
		},
		{
			name: "compressed rle",
			in:   `{"size":[4,4],"counts":"088"}`,
			form: func(s Segmentation) bool { return s.RLE != nil && s.RLE.Compressed() },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seg Segmentation
			if err := json.Unmarshal([]byte(tc.in), &seg); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !tc.form(seg) {
				t.Fatalf("decoded into the wrong form: %+v", seg)
			}

			back, err := json.Marshal(seg)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			want := tc.out
			if want == "" {
				want = tc.in
			}
			if string(back) != want {
				t.Errorf("round trip: expected %s, got %s", want, back)
			}
		})
	}
}

func TestSegmentationRejectsUnknownShape(t *testing.T) {
	var seg Segmentation
	if err := json.Unmarshal([]byte(`"not a segmentation"`), &seg); err == nil {
		t.Error("Expected an error for a string segmentation")
	}

	// RLE without a usable size is refused at decode time.
	if err := json.Unmarshal([]byte(`{"counts":[1,2],"size":[3]}`), &seg); err == nil {
		t.Error("Expected an error for a one-element size")
	}
	if err := json.Unmarshal([]byte(`{"size":[3,3]}`), &seg); err == nil {
		t.Error("Expected an error for missing counts")
	}
}

func TestAnnotationRoundTripPreservesAttributes(t *testing.T) {
	in := `{"id":7,"image_id":1,"category_id":2,"segmentation":[],"area":42.5,"bbox":[1,2,3,4],"iscrowd":0,"attributes":{"occluded":true,"rotation":0.0}}`

	var ann Annotation
	if err := json.Unmarshal([]byte(in), &ann); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if ann.ID != 7 || ann.Area != 42.5 {
		t.Errorf("fields lost: %+v", ann)
	}

	back, err := json.Marshal(ann)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got, want map[string]interface{}
	if err := json.Unmarshal(back, &got); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(in), &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip drifted:\n got  %s\n want %s", back, in)
	}
}

func TestImageRoundTripPreservesCVATFields(t *testing.T) {
	// CVAT emits zero values for these, so presence has to survive re-encoding.
	in := `{"id":3,"width":640,"height":480,"file_name":"frame_000003.png","license":0,"flickr_url":"","coco_url":"","date_captured":0}`

	var img Image
	if err := json.Unmarshal([]byte(in), &img); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	back, err := json.Marshal(img)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got, want map[string]interface{}
	if err := json.Unmarshal(back, &got); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(in), &want); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip drifted:\n got  %s\n want %s", back, in)
	}
}
