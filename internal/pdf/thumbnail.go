package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/gen2brain/go-fitz"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// thumbnailSize fits a width x height page into a max x max box, keeping the
// aspect ratio. The longer side is exactly max.
func thumbnailSize(width, height float64, max int) (int, int) {
	w, h := max, max
	if width > height {
		h = int(math.Round(float64(max) * height / width))
	} else {
		w = int(math.Round(float64(max) * width / height))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// renderThumbnail rasterizes page index at the resolution that makes its
// longer side max pixels, then resamples onto an exact-size white canvas.
func renderThumbnail(fz *fitz.Document, index int, max int) ([]byte, error) {
	bounds, err := fz.Bound(index)
	if err != nil {
		return nil, errors.Wrap(err, "page bounds")
	}

	pw, ph := float64(bounds.Dx()), float64(bounds.Dy())
	if pw <= 0 || ph <= 0 {
		return nil, errors.Errorf("page has empty bounds %v", bounds)
	}

	w, h := thumbnailSize(pw, ph, max)
	dpi := 72 * float64(max) / math.Max(pw, ph)

	src, err := fz.ImageDPI(index, dpi)
	if err != nil {
		return nil, errors.Wrap(err, "rasterize page")
	}

	return encodeThumbnail(src, w, h)
}

// encodeThumbnail draws src over white at w x h and encodes it as an opaque
// PNG, so the output is RGB without an alpha channel.
func encodeThumbnail(src image.Image, w, h int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Over)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}
