package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// Downscale bounds the longest edge of img to maxEdge pixels, preserving
// aspect ratio. Images already within the bound are returned unchanged.
func Downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	var newW, newH int
	if w >= h {
		newW = maxEdge
		newH = h * maxEdge / w
	} else {
		newH = maxEdge
		newW = w * maxEdge / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodePNG serializes an image as PNG for the inference request payload.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses an encoded raster buffer (PNG or JPEG).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Process decodes an uploaded capture, bounds its longest edge and
// re-encodes it for the inference payload.
func Process(data []byte, maxEdge int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(Downscale(img, maxEdge))
}
