// internal/pkg/qrscan/transform.go
package qrscan

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// binarize maps every pixel to pure black or white around a luminance cutoff.
func binarize(img image.Image, cutoff uint8) image.Image {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	out := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(gray.At(x, y)).(color.Gray)
			if c.Y >= cutoff {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// stretchContrast pushes each channel away from the image's mean luminance by
// a fixed factor, clamped to [0,255]. Lifts washed-out phone captures enough
// for the binarizers to find module edges.
func stretchContrast(img image.Image, factor float64) image.Image {
	bounds := img.Bounds()
	if bounds.Empty() {
		return img
	}

	var sum, count float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sum += 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			count++
		}
	}
	mean := sum / count

	out := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			out.SetNRGBA(x, y, color.NRGBA{
				R: stretchChannel(uint8(r>>8), mean, factor),
				G: stretchChannel(uint8(g>>8), mean, factor),
				B: stretchChannel(uint8(b>>8), mean, factor),
				A: uint8(a >> 8),
			})
		}
	}
	return out
}

func stretchChannel(v uint8, mean, factor float64) uint8 {
	stretched := mean + (float64(v)-mean)*factor
	if stretched < 0 {
		return 0
	}
	if stretched > 255 {
		return 255
	}
	return uint8(stretched)
}
