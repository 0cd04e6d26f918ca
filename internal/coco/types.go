package coco

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Dataset mirrors the JSON layout of a CVAT "COCO 1.0" export. Licenses and
// info are opaque to every transform, so they are kept as raw JSON and pass
// through untouched.
type Dataset struct {
	Licenses    json.RawMessage `json:"licenses,omitempty"`
	Info        json.RawMessage `json:"info,omitempty"`
	Categories  []Category      `json:"categories"`
	Images      []Image         `json:"images"`
	Annotations []Annotation    `json:"annotations"`
}

// Image is one entry of the images table. Width and Height are the declared
// pixel dimensions every annotation coordinate is relative to. The optional
// CVAT fields are pointers so a present-but-zero value round-trips and an
// absent one stays absent.
type Image struct {
	ID           int             `json:"id"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	FileName     string          `json:"file_name"`
	License      *int            `json:"license,omitempty"`
	FlickrURL    *string         `json:"flickr_url,omitempty"`
	CocoURL      *string         `json:"coco_url,omitempty"`
	DateCaptured json.RawMessage `json:"date_captured,omitempty"` // CVAT emits 0 or a timestamp string
}

// Annotation labels one region of one image. BBox is [x, y, w, h] in pixels.
type Annotation struct {
	ID           int             `json:"id"`
	ImageID      int             `json:"image_id"`
	CategoryID   int             `json:"category_id"`
	Segmentation Segmentation    `json:"segmentation"`
	Area         float64         `json:"area"`
	BBox         []float64       `json:"bbox"`
	IsCrowd      int             `json:"iscrowd"`
	Attributes   json.RawMessage `json:"attributes,omitempty"`
}

// Category is a label class. Geometric transforms never touch these.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// Segmentation holds either polygon rings or a single RLE mask, the two
// encodings COCO allows. At most one field is set; both empty means the
// annotation carries no segmentation (a bbox-only export).
type Segmentation struct {
	Polygons [][]float64
	RLE      *RLE
}

// Empty reports whether the annotation carries no segmentation at all.
func (s Segmentation) Empty() bool {
	return len(s.Polygons) == 0 && s.RLE == nil
}

func (s *Segmentation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = Segmentation{}
		return nil
	}
	switch trimmed[0] {
	case '[':
		var polys [][]float64
		if err := json.Unmarshal(trimmed, &polys); err != nil {
			return errors.Wrap(err, "polygon segmentation")
		}
		if len(polys) == 0 {
			polys = nil
		}
		*s = Segmentation{Polygons: polys}
		return nil
	case '{':
		rle := &RLE{}
		if err := json.Unmarshal(trimmed, rle); err != nil {
			return err
		}
		*s = Segmentation{RLE: rle}
		return nil
	}
	return errors.Errorf("segmentation is neither a polygon list nor an RLE object: %.32s", trimmed)
}

func (s Segmentation) MarshalJSON() ([]byte, error) {
	switch {
	case s.RLE != nil:
		return json.Marshal(s.RLE)
	case s.Polygons != nil:
		return json.Marshal(s.Polygons)
	default:
		// CVAT writes an empty list for bbox-only annotations.
		return []byte("[]"), nil
	}
}

// RLE is a COCO run-length mask. Counts walks the mask in column-major order,
// alternating runs of zeros and ones and starting with zeros. Exactly one of
// Counts or CompressedCounts is set, mirroring the uncompressed and compressed
// JSON forms.
type RLE struct {
	Counts           []int
	CompressedCounts string
	Size             [2]int // rows, cols
}

// Compressed reports whether the mask uses the packed string encoding.
func (r *RLE) Compressed() bool {
	return r.CompressedCounts != ""
}

func (r *RLE) UnmarshalJSON(data []byte) error {
	var raw struct {
		Counts json.RawMessage `json:"counts"`
		Size   []int           `json:"size"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "rle segmentation")
	}
	if len(raw.Size) != 2 {
		return errors.Errorf("rle size has %d elements, want 2", len(raw.Size))
	}
	r.Size = [2]int{raw.Size[0], raw.Size[1]}

	counts := bytes.TrimSpace(raw.Counts)
	if len(counts) == 0 {
		return errors.New("rle has no counts")
	}
	if counts[0] == '"' {
		if err := json.Unmarshal(counts, &r.CompressedCounts); err != nil {
			return errors.Wrap(err, "rle counts string")
		}
		r.Counts = nil
		return nil
	}
	if err := json.Unmarshal(counts, &r.Counts); err != nil {
		return errors.Wrap(err, "rle counts list")
	}
	r.CompressedCounts = ""
	return nil
}

func (r *RLE) MarshalJSON() ([]byte, error) {
	var counts interface{}
	if r.Compressed() {
		counts = r.CompressedCounts
	} else {
		c := r.Counts
		if c == nil {
			c = []int{}
		}
		counts = c
	}
	return json.Marshal(struct {
		Size   [2]int      `json:"size"`
		Counts interface{} `json:"counts"`
	}{r.Size, counts})
}
