package ocr

import (
	"image"

	"golang.org/x/image/draw"
)

// Binarize converts img to grayscale and applies a fixed binary threshold:
// pixels brighter than threshold become white, everything else black.
func Binarize(img image.Image, threshold uint8) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)

	for i, y := range gray.Pix {
		if y > threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray
}
