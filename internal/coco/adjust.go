package coco

import (
	"math"

	"github.com/pkg/errors"
)

// RLEPolicy controls what Adjust does with run-length masks.
type RLEPolicy int

const (
	// RejectRLE fails the batch when any annotation carries an RLE mask.
	RejectRLE RLEPolicy = iota
	// RescaleRLE decodes, resamples and re-encodes RLE masks.
	RescaleRLE
)

// ParseRLEPolicy maps the CLI flag values onto a policy.
func ParseRLEPolicy(s string) (RLEPolicy, error) {
	switch s {
	case "reject":
		return RejectRLE, nil
	case "rescale":
		return RescaleRLE, nil
	}
	return 0, errors.Errorf("unknown segmentation policy %q (want reject or rescale)", s)
}

// AdjustOptions selects the target geometry. Either Width and Height are both
// set (absolute target, factors derived per image from its declared
// dimensions) or Scale is set (one uniform factor for the whole set).
type AdjustOptions struct {
	Width  int
	Height int
	Scale  float64
	RLE    RLEPolicy
}

func (o AdjustOptions) validate() error {
	uniform := o.Scale != 0
	absolute := o.Width != 0 || o.Height != 0
	if uniform && absolute {
		return errors.New("scale and width/height targets are mutually exclusive")
	}
	if uniform {
		if o.Scale <= 0 {
			return errors.Wrapf(ErrDimensionMismatch, "scale factor %g is not positive", o.Scale)
		}
		return nil
	}
	if o.Width <= 0 || o.Height <= 0 {
		return errors.Wrapf(ErrDimensionMismatch, "target resolution %dx%d is not positive", o.Width, o.Height)
	}
	return nil
}

// factors returns the scale pair and new declared dimensions for one image.
// The caller guarantees the image's declared dimensions are positive.
func (o AdjustOptions) factors(img *Image) (sx, sy float64, w, h int) {
	if o.Scale > 0 {
		sx, sy = o.Scale, o.Scale
		w = int(math.Round(float64(img.Width) * sx))
		h = int(math.Round(float64(img.Height) * sy))
		return
	}
	sx = float64(o.Width) / float64(img.Width)
	sy = float64(o.Height) / float64(img.Height)
	w, h = o.Width, o.Height
	return
}

// scalePair carries one image's factors and final geometry through the
// annotation pass.
type scalePair struct {
	sx, sy float64
	w, h   int
}

// Adjust rescales every image record and every annotation to the target
// geometry and returns a fresh dataset, leaving ds untouched. The input is
// validated first and every problem in it is reported at once; a non-nil
// error means nothing was transformed and no output should be written.
//
// Bounding boxes and polygon vertices are multiplied by the image's factors,
// declared dimensions are rounded, and area follows area*sx*sy. RLE masks
// are rejected or resampled depending on the policy.
func Adjust(ds *Dataset, opts AdjustOptions) (*Dataset, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if err := ds.Validate(); err != nil {
		ve, ok := err.(*ValidationError)
		if !ok {
			return nil, err
		}
		verr.Problems = append(verr.Problems, ve.Problems...)
	}

	out := &Dataset{
		Licenses:    ds.Licenses,
		Info:        ds.Info,
		Categories:  append([]Category(nil), ds.Categories...),
		Images:      make([]Image, len(ds.Images)),
		Annotations: make([]Annotation, len(ds.Annotations)),
	}

	scales := make(map[int]scalePair, len(ds.Images))
	for i, img := range ds.Images {
		if img.Width <= 0 || img.Height <= 0 {
			// Factors are underivable; Validate has already reported it.
			out.Images[i] = img
			continue
		}
		sx, sy, w, h := opts.factors(&img)
		if w < 1 || h < 1 {
			verr.add(errors.Wrapf(ErrDimensionMismatch,
				"image %d collapses to %dx%d at the requested target", img.ID, w, h))
			continue
		}
		img.Width = w
		img.Height = h
		out.Images[i] = img
		scales[img.ID] = scalePair{sx: sx, sy: sy, w: w, h: h}
	}

	for i, ann := range ds.Annotations {
		if opts.RLE == RejectRLE && ann.Segmentation.RLE != nil {
			verr.add(errors.Wrapf(ErrUnsupportedGeometry,
				"annotation %d carries an rle mask and the segmentation policy is reject", ann.ID))
			continue
		}
		sc, ok := scales[ann.ImageID]
		if !ok {
			// Dangling reference or a broken image; already reported.
			out.Annotations[i] = ann
			continue
		}
		scaled, err := scaleAnnotation(ann, sc)
		if err != nil {
			verr.add(err)
			continue
		}
		out.Annotations[i] = scaled
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// scaleAnnotation returns a deep copy of ann with every coordinate mapped
// onto the image's new geometry.
func scaleAnnotation(ann Annotation, sc scalePair) (Annotation, error) {
	switch {
	case len(ann.BBox) == 4:
		ann.BBox = []float64{
			ann.BBox[0] * sc.sx,
			ann.BBox[1] * sc.sy,
			ann.BBox[2] * sc.sx,
			ann.BBox[3] * sc.sy,
		}
	case ann.BBox != nil:
		ann.BBox = append(make([]float64, 0, len(ann.BBox)), ann.BBox...)
	}

	seg := ann.Segmentation
	switch {
	case len(seg.Polygons) > 0:
		polys := make([][]float64, len(seg.Polygons))
		for i, ring := range seg.Polygons {
			scaled := make([]float64, len(ring))
			for j, v := range ring {
				if j%2 == 0 {
					scaled[j] = v * sc.sx
				} else {
					scaled[j] = v * sc.sy
				}
			}
			polys[i] = scaled
		}
		ann.Segmentation = Segmentation{Polygons: polys}
	case seg.RLE != nil:
		rle, err := seg.RLE.rescaled(sc.w, sc.h)
		if err != nil {
			return ann, errors.Wrapf(err, "annotation %d", ann.ID)
		}
		ann.Segmentation = Segmentation{RLE: rle}
	}

	ann.Area *= sc.sx * sc.sy
	return ann, nil
}
