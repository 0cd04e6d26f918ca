package coco

import (
	"strings"

	"github.com/pkg/errors"
)

// Run-length masks follow the COCO convention: counts walk the mask in
// column-major order, alternating runs of zeros and ones, starting with
// zeros. The compressed form packs each count into 5-bit groups of printable
// ASCII, delta-encoding against the count two positions back so long
// alternating runs stay short.

// Mask is a decoded binary mask in row-major order.
type Mask struct {
	W, H int
	Pix  []uint8 // len W*H, row y at Pix[y*W : (y+1)*W]
}

// At returns the mask value at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.W+x]
}

// Decode expands the run lengths into a full binary mask.
func (r *RLE) Decode() (*Mask, error) {
	counts, err := r.counts()
	if err != nil {
		return nil, err
	}
	h, w := r.Size[0], r.Size[1]
	if h <= 0 || w <= 0 {
		return nil, errors.Wrapf(ErrMalformedInput, "rle declares size %dx%d", h, w)
	}
	total := 0
	for _, c := range counts {
		if c < 0 {
			return nil, errors.Wrapf(ErrMalformedInput, "rle has a negative run length %d", c)
		}
		total += c
	}
	if total != h*w {
		return nil, errors.Wrapf(ErrMalformedInput, "rle counts cover %d pixels, mask is %dx%d", total, h, w)
	}

	m := &Mask{W: w, H: h, Pix: make([]uint8, w*h)}
	idx := 0
	val := uint8(0)
	for _, c := range counts {
		for j := 0; j < c; j++ {
			col := idx / h
			row := idx % h
			m.Pix[row*w+col] = val
			idx++
		}
		val = 1 - val
	}
	return m, nil
}

// EncodeRLE packs the mask back into run lengths, column-major.
func (m *Mask) EncodeRLE() *RLE {
	counts := make([]int, 0, 8)
	cur := uint8(0)
	run := 0
	for i := 0; i < m.W*m.H; i++ {
		col := i / m.H
		row := i % m.H
		v := m.Pix[row*m.W+col]
		if v != 0 {
			v = 1
		}
		if v != cur {
			counts = append(counts, run)
			cur = v
			run = 0
		}
		run++
	}
	counts = append(counts, run)
	return &RLE{Counts: counts, Size: [2]int{m.H, m.W}}
}

// ResizeNearest resamples the mask to w by h with nearest-neighbour lookup,
// the only sensible filter for binary label data.
func (m *Mask) ResizeNearest(w, h int) *Mask {
	out := &Mask{W: w, H: h, Pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		srcY := y * m.H / h
		for x := 0; x < w; x++ {
			srcX := x * m.W / w
			out.Pix[y*w+x] = m.Pix[srcY*m.W+srcX]
		}
	}
	return out
}

// rescaled returns a copy of the mask resampled to w by h, re-encoded in the
// same counts form the input used.
func (r *RLE) rescaled(w, h int) (*RLE, error) {
	mask, err := r.Decode()
	if err != nil {
		return nil, err
	}
	out := mask.ResizeNearest(w, h).EncodeRLE()
	if r.Compressed() {
		out.CompressedCounts = compressCounts(out.Counts)
		out.Counts = nil
	}
	return out, nil
}

// counts returns the numeric run lengths, expanding the string form if needed.
func (r *RLE) counts() ([]int, error) {
	if r.Compressed() {
		return decompressCounts(r.CompressedCounts)
	}
	return r.Counts, nil
}

// compressCounts packs run lengths into the COCO ASCII encoding. Each value
// is delta-encoded against the value two back, then emitted low bits first in
// 5-bit groups; bit 0x20 marks continuation and the offset 48 keeps every
// byte printable.
func compressCounts(counts []int) string {
	var b strings.Builder
	for i, c := range counts {
		x := int64(c)
		if i > 2 {
			x -= int64(counts[i-2])
		}
		more := true
		for more {
			ch := x & 0x1f
			x >>= 5
			if ch&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				ch |= 0x20
			}
			b.WriteByte(byte(ch) + 48)
		}
	}
	return b.String()
}

// decompressCounts reverses compressCounts.
func decompressCounts(s string) ([]int, error) {
	var counts []int
	p := 0
	for p < len(s) {
		var x int64
		k := uint(0)
		more := true
		for more {
			if p >= len(s) {
				return nil, errors.Wrap(ErrMalformedInput, "truncated rle counts string")
			}
			c := int64(s[p]) - 48
			if c < 0 || c > 0x3f {
				return nil, errors.Wrapf(ErrMalformedInput, "invalid rle counts byte %q", s[p])
			}
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if len(counts) > 2 {
			x += int64(counts[len(counts)-2])
		}
		counts = append(counts, int(x))
	}
	return counts, nil
}
