// internal/pkg/qrscan/extractor.go
package qrscan

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

const (
	// Captures larger than this on either axis get a downscaled attempt.
	maxScanDimension = 512

	thresholdLow  = 100
	thresholdHigh = 160

	contrastFactor = 1.2
)

// Extractor turns a pixel buffer into the QR text via an ordered chain of
// image transforms. The ordering trades common-case speed for worst-case
// robustness against inversion, skew and low contrast: each strategy runs at
// most once and the first hit short-circuits the rest.
type Extractor struct {
	// onAttempt is invoked with the strategy name before each decode attempt.
	// Nil outside of tests.
	onAttempt func(strategy string)
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract attempts to decode a QR code from img. The second return value is
// false when every strategy has been exhausted.
func (e *Extractor) Extract(img image.Image) (string, bool) {
	if img == nil {
		return "", false
	}

	if text, ok := e.attempt("raw", img); ok {
		return text, true
	}

	// Light-on-dark rendering.
	if text, ok := e.attempt("inverted", imaging.Invert(img)); ok {
		return text, true
	}

	// Portrait/landscape mismatch.
	if text, ok := e.attempt("rotate90", imaging.Rotate90(img)); ok {
		return text, true
	}
	if text, ok := e.attempt("rotate270", imaging.Rotate270(img)); ok {
		return text, true
	}

	// Oversized captures: trade resolution for decoder robustness.
	bounds := img.Bounds()
	if bounds.Dx() > maxScanDimension || bounds.Dy() > maxScanDimension {
		scaled := imaging.Fit(img, maxScanDimension, maxScanDimension, imaging.Lanczos)
		if text, ok := e.attempt("downscaled", scaled); ok {
			return text, true
		}
	}

	// Low contrast or glare.
	if text, ok := e.attempt("threshold-low", binarize(img, thresholdLow)); ok {
		return text, true
	}
	if text, ok := e.attempt("threshold-high", binarize(img, thresholdHigh)); ok {
		return text, true
	}

	return "", false
}

// ExtractFromCrop scans a user-selected crop region of an uploaded image.
// With enhance set, a contrast stretch runs first; if the enhanced crop fails
// to scan, the unenhanced crop gets one retry before failure is declared.
func (e *Extractor) ExtractFromCrop(img image.Image, crop image.Rectangle, enhance bool) (string, bool) {
	if img == nil {
		return "", false
	}

	region := imaging.Clone(img)
	if !crop.Empty() {
		region = imaging.Crop(img, crop)
	}

	if !enhance {
		return e.Extract(region)
	}

	if text, ok := e.Extract(stretchContrast(region, contrastFactor)); ok {
		return text, true
	}
	return e.Extract(region)
}

// attempt runs both decode entry points against one candidate image: the
// hybrid binarizer first, then the global-histogram one. Some codes decode
// under exactly one of the two for identical pixels.
func (e *Extractor) attempt(strategy string, img image.Image) (string, bool) {
	if e.onAttempt != nil {
		e.onAttempt(strategy)
	}

	src := gozxing.NewLuminanceSourceFromImage(img)

	if text, ok := e.decode(gozxing.NewHybridBinarizer(src)); ok {
		return text, true
	}
	return e.decode(gozxing.NewGlobalHistgramBinarizer(src))
}

func (e *Extractor) decode(binarizer gozxing.Binarizer) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmap(binarizer)
	if err != nil {
		return "", false
	}

	// The zxing reader keeps internal decode state, so each attempt gets a
	// fresh one; Extractor itself stays safe for concurrent use.
	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bmp, map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	})
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}
