package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/molmez/cocokit/internal/utils"
)

// ErrUndecodable reports data that OpenCV could not decode as an image.
var ErrUndecodable = errors.New("undecodable image data")

// Decode decodes raster bytes into a color Mat. The caller owns the Mat.
func Decode(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, errors.Wrap(ErrUndecodable, err.Error())
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, ErrUndecodable
	}
	return img, nil
}

// ReadImage loads and decodes the raster at path. The caller owns the Mat.
func ReadImage(path string) (gocv.Mat, error) {
	data, err := utils.ReadFile(path)
	if err != nil {
		return gocv.Mat{}, err
	}
	img, err := Decode(data)
	if err != nil {
		return gocv.Mat{}, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// Resize scales src to width x height into a new Mat the caller owns.
// Shrinking uses area interpolation, growing uses linear, matching what
// OpenCV recommends for each direction.
func Resize(src gocv.Mat, width, height int) gocv.Mat {
	dst := gocv.NewMat()
	interp := interpolationFor(src.Cols(), src.Rows(), width, height)
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, interp)
	return dst
}

func interpolationFor(srcW, srcH, dstW, dstH int) gocv.InterpolationFlags {
	if dstW*dstH < srcW*srcH {
		return gocv.InterpolationArea
	}
	return gocv.InterpolationLinear
}

// Encode serializes img in the format implied by path's extension.
func Encode(img gocv.Mat, path string) ([]byte, error) {
	buf, err := gocv.IMEncode(extFor(path), img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// EncodeJPEG serializes img as JPEG at the given quality (1-100).
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	params := []int{gocv.IMWriteJpegQuality, quality}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, params)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

func extFor(path string) gocv.FileExt {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return gocv.JPEGFileExt
	case ".png":
		return gocv.PNGFileExt
	default:
		return gocv.FileExt(ext)
	}
}

// ResizeFile rescales the raster at src to width x height and writes the
// result to dst. When the source already has the target size the original
// bytes are copied through untouched, so repeated runs do not accumulate
// recompression artifacts. src and dst may be the same path.
func ResizeFile(src, dst string, width, height int) error {
	data, err := utils.ReadFile(src)
	if err != nil {
		return err
	}
	img, err := Decode(data)
	if err != nil {
		return errors.Wrapf(err, "decode %s", src)
	}
	defer img.Close()

	if img.Cols() == width && img.Rows() == height {
		if src == dst {
			return nil
		}
		return utils.WriteFile(dst, data, 0644)
	}

	resized := Resize(img, width, height)
	defer resized.Close()

	encoded, err := Encode(resized, dst)
	if err != nil {
		return errors.Wrapf(err, "encode %s", dst)
	}
	return utils.WriteFile(dst, encoded, 0644)
}

// ConvertToJPEG re-encodes the raster at src as a JPEG at dst.
func ConvertToJPEG(src, dst string, quality int) error {
	img, err := ReadImage(src)
	if err != nil {
		return err
	}
	defer img.Close()

	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return errors.Wrapf(err, "encode %s", dst)
	}
	return utils.WriteFile(dst, data, 0644)
}

// --- Overlay drawing ---

// Box is a labelled rectangle in pixel coordinates.
type Box struct {
	Rect  image.Rectangle
	Label string
}

const (
	boxThickness    = 2
	labelOffset     = 5
	labelTextHeight = 15
)

// labelOrigin places the label just above the box, or inside it when the
// box touches the top edge of the frame.
func labelOrigin(r image.Rectangle) image.Point {
	pt := image.Pt(r.Min.X, r.Min.Y-labelOffset)
	if pt.Y < labelTextHeight {
		pt.Y = r.Min.Y + labelTextHeight
	}
	return pt
}

// DrawBoxes draws each box and its label onto img.
func DrawBoxes(img *gocv.Mat, boxes []Box, c color.RGBA) {
	for _, b := range boxes {
		gocv.Rectangle(img, b.Rect, c, boxThickness)
		if b.Label != "" {
			gocv.PutText(img, b.Label, labelOrigin(b.Rect), gocv.FontHersheyPlain, 1.2, c, 1)
		}
	}
}
