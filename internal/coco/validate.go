package coco

import "github.com/pkg/errors"

// Validate checks a dataset's structure and referential integrity before any
// transform runs. It is total: every problem in the dataset is collected into
// one *ValidationError instead of stopping at the first, so a broken export
// is fixed in one round trip. A nil return means the dataset is clean.
func (ds *Dataset) Validate() error {
	verr := &ValidationError{}

	imgByID := make(map[int]*Image, len(ds.Images))
	for i := range ds.Images {
		img := &ds.Images[i]
		if _, dup := imgByID[img.ID]; dup {
			verr.add(errors.Wrapf(ErrMalformedInput, "duplicate image id %d", img.ID))
			continue
		}
		imgByID[img.ID] = img
		if img.FileName == "" {
			verr.add(errors.Wrapf(ErrMalformedInput, "image %d has no file_name", img.ID))
		}
		if img.Width <= 0 || img.Height <= 0 {
			verr.add(errors.Wrapf(ErrDimensionMismatch, "image %d declares %dx%d", img.ID, img.Width, img.Height))
		}
	}

	catIDs := make(map[int]bool, len(ds.Categories))
	for _, cat := range ds.Categories {
		if catIDs[cat.ID] {
			verr.add(errors.Wrapf(ErrMalformedInput, "duplicate category id %d", cat.ID))
		}
		catIDs[cat.ID] = true
	}

	annIDs := make(map[int]bool, len(ds.Annotations))
	for i := range ds.Annotations {
		ann := &ds.Annotations[i]
		if annIDs[ann.ID] {
			verr.add(errors.Wrapf(ErrMalformedInput, "duplicate annotation id %d", ann.ID))
		}
		annIDs[ann.ID] = true

		img, ok := imgByID[ann.ImageID]
		if !ok {
			verr.add(errors.Wrapf(ErrDanglingReference, "annotation %d references missing image %d", ann.ID, ann.ImageID))
		}
		if !catIDs[ann.CategoryID] {
			verr.add(errors.Wrapf(ErrDanglingReference, "annotation %d references missing category %d", ann.ID, ann.CategoryID))
		}
		if len(ann.BBox) != 0 && len(ann.BBox) != 4 {
			verr.add(errors.Wrapf(ErrMalformedInput, "annotation %d has a %d-element bbox", ann.ID, len(ann.BBox)))
		}
		if len(ann.BBox) == 4 && (ann.BBox[2] < 0 || ann.BBox[3] < 0) {
			verr.add(errors.Wrapf(ErrMalformedInput, "annotation %d has a negative bbox extent", ann.ID))
		}
		for j, ring := range ann.Segmentation.Polygons {
			if len(ring)%2 != 0 || len(ring) < 6 {
				verr.add(errors.Wrapf(ErrMalformedInput,
					"annotation %d polygon %d has %d coordinates, want an even count of at least 6",
					ann.ID, j, len(ring)))
			}
		}
		if rle := ann.Segmentation.RLE; rle != nil {
			if rle.Size[0] <= 0 || rle.Size[1] <= 0 {
				verr.add(errors.Wrapf(ErrMalformedInput, "annotation %d rle declares size %dx%d", ann.ID, rle.Size[0], rle.Size[1]))
			} else if img != nil && img.Width > 0 && img.Height > 0 &&
				(rle.Size[0] != img.Height || rle.Size[1] != img.Width) {
				// COCO rle size is [rows, cols] and must match the owning image.
				verr.add(errors.Wrapf(ErrDimensionMismatch,
					"annotation %d rle is %dx%d but image %d is %dx%d",
					ann.ID, rle.Size[1], rle.Size[0], img.ID, img.Width, img.Height))
			}
		}
	}

	return verr.orNil()
}
