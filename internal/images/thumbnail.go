// Package images derives thumbnails for uploaded photos.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxSize is the longest edge of a generated thumbnail.
const DefaultMaxSize = 200

var ErrUnsupported = errors.New("images: unsupported image format")

// IsImage reports whether a content type names an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Fit scales w x h down so the longest edge is at most max, keeping the
// aspect ratio. Images already within bounds are returned unchanged.
func Fit(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}

// Thumbnail decodes r and re-encodes it as a JPEG no larger than max on its
// longest edge.
func Thumbnail(r io.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxSize
	}
	src, _, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupported
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), max)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
