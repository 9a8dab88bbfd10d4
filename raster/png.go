package raster

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
)

// Decode reads a PNG file into an RGBA pixel buffer, converting whatever
// color model the file uses to 4 channels.
func Decode(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("tilemap: decode %s: %w", path, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if nrgba, ok := src.(*image.NRGBA); ok && nrgba.Stride == w*4 && bounds.Min == (image.Point{}) {
		return &Image{Pix: nrgba.Pix, W: w, H: h}, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return &Image{Pix: dst.Pix, W: w, H: h}, nil
}

// Encode writes the image as an 8-bit RGBA PNG file.
func (img *Image) Encode(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	nrgba := &image.NRGBA{Pix: img.Pix, Stride: img.W * 4, Rect: image.Rect(0, 0, img.W, img.H)}
	if err := png.Encode(file, nrgba); err != nil {
		file.Close()
		return fmt.Errorf("tilemap: encode %s: %w", path, err)
	}
	return file.Close()
}
