package coco

import (
	"errors"
	"testing"
)

func TestValidateAcceptsCleanDataset(t *testing.T) {
	if err := sampleDataset().Validate(); err != nil {
		t.Errorf("Expected clean dataset to validate, got %v", err)
	}
}

func TestValidateFindsEveryProblemKind(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ds *Dataset)
		want   error
	}{
		{
			name:   "dangling image reference",
			mutate: func(ds *Dataset) { ds.Annotations[0].ImageID = 404 },
			want:   ErrDanglingReference,
		},
		{
			name:   "dangling category reference",
			mutate: func(ds *Dataset) { ds.Annotations[0].CategoryID = 404 },
			want:   ErrDanglingReference,
		},
		{
			name:   "zero width",
			mutate: func(ds *Dataset) { ds.Images[0].Width = 0 },
			want:   ErrDimensionMismatch,
		},
		{
			name:   "negative height",
			mutate: func(ds *Dataset) { ds.Images[0].Height = -600 },
			want:   ErrDimensionMismatch,
		},
		{
			name:   "duplicate image id",
			mutate: func(ds *Dataset) { ds.Images = append(ds.Images, ds.Images[0]) },
			want:   ErrMalformedInput,
		},
		{
			name: "duplicate annotation id",
			mutate: func(ds *Dataset) {
				dup := ds.Annotations[0]
				ds.Annotations = append(ds.Annotations, dup)
			},
			want: ErrMalformedInput,
		},
		{
			name:   "three element bbox",
			mutate: func(ds *Dataset) { ds.Annotations[0].BBox = []float64{1, 2, 3} },
			want:   ErrMalformedInput,
		},
		{
			name:   "negative bbox extent",
			mutate: func(ds *Dataset) { ds.Annotations[0].BBox = []float64{10, 10, -5, 5} },
			want:   ErrMalformedInput,
		},
		{
			name: "odd polygon coordinate count",
			mutate: func(ds *Dataset) {
				ds.Annotations[0].Segmentation = Segmentation{Polygons: [][]float64{{1, 2, 3, 4, 5}}}
			},
			want: ErrMalformedInput,
		},
		{
			name: "degenerate polygon",
			mutate: func(ds *Dataset) {
				ds.Annotations[0].Segmentation = Segmentation{Polygons: [][]float64{{1, 2, 3, 4}}}
			},
			want: ErrMalformedInput,
		},
		{
			name: "missing file name",
			mutate: func(ds *Dataset) {
				ds.Images[0].FileName = ""
			},
			want: ErrMalformedInput,
		},
		{
			name: "rle size disagrees with image",
			mutate: func(ds *Dataset) {
				ds.Annotations[0].Segmentation = Segmentation{
					RLE: &RLE{Counts: []int{0, 100}, Size: [2]int{10, 10}},
				}
			},
			want: ErrDimensionMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := sampleDataset()
			tc.mutate(ds)
			err := ds.Validate()
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateCollectsMultipleProblems(t *testing.T) {
	ds := sampleDataset()
	ds.Images[0].Width = 0
	ds.Annotations[0].CategoryID = 404
	ds.Annotations = append(ds.Annotations, Annotation{ID: 2, ImageID: 77, CategoryID: 1})

	err := ds.Validate()
	if err == nil {
		t.Fatal("Expected validation to fail")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected a *ValidationError, got %T", err)
	}
	if len(verr.Problems) != 3 {
		t.Errorf("Expected 3 problems, got %d: %v", len(verr.Problems), verr)
	}
}
