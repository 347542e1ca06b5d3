package qrscan

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	qrgen "github.com/skip2/go-qrcode"
)

const testPayload = "aGVsbG8.d29ybGQtY2lwaGVydGV4dA.dGFnZ2VkLXRhZw"

func qrImage(t *testing.T, content string, size int) image.Image {
	t.Helper()
	qr, err := qrgen.New(content, qrgen.Medium)
	if err != nil {
		t.Fatalf("generate qr: %v", err)
	}
	return qr.Image(size)
}

func TestExtractRaw(t *testing.T) {
	e := NewExtractor()
	var attempts []string
	e.onAttempt = func(s string) { attempts = append(attempts, s) }

	text, ok := e.Extract(qrImage(t, testPayload, 256))
	if !ok {
		t.Fatal("extraction failed on a clean code")
	}
	if text != testPayload {
		t.Fatalf("text = %q, want %q", text, testPayload)
	}
	if len(attempts) != 1 || attempts[0] != "raw" {
		t.Fatalf("attempts = %v, want [raw]", attempts)
	}
}

// An inverted rendering must fail the raw attempt and succeed on the
// inversion strategy, proving the chain advances in order.
func TestExtractInverted(t *testing.T) {
	e := NewExtractor()
	var attempts []string
	e.onAttempt = func(s string) { attempts = append(attempts, s) }

	inverted := imaging.Invert(qrImage(t, testPayload, 256))

	text, ok := e.Extract(inverted)
	if !ok {
		t.Fatal("extraction failed on inverted code")
	}
	if text != testPayload {
		t.Fatalf("text = %q, want %q", text, testPayload)
	}
	if len(attempts) < 2 || attempts[0] != "raw" {
		t.Fatalf("attempts = %v, want raw tried first", attempts)
	}
	if attempts[len(attempts)-1] == "raw" {
		t.Fatalf("raw attempt should not have succeeded: %v", attempts)
	}
}

// Inverted and washed out at once: the earliest strategies must be exhausted
// before a later one lands the decode.
func TestExtractInvertedLowContrast(t *testing.T) {
	e := NewExtractor()
	var attempts []string
	e.onAttempt = func(s string) { attempts = append(attempts, s) }

	src := qrImage(t, testPayload, 256)
	degraded := imaging.AdjustFunc(imaging.Invert(src), func(c color.NRGBA) color.NRGBA {
		// Compress dynamic range into [90, 170].
		scale := func(v uint8) uint8 { return uint8(90 + int(v)*80/255) }
		return color.NRGBA{scale(c.R), scale(c.G), scale(c.B), c.A}
	})

	text, ok := e.Extract(degraded)
	if !ok {
		t.Fatal("extraction failed on degraded code")
	}
	if text != testPayload {
		t.Fatalf("text = %q, want %q", text, testPayload)
	}
	if attempts[0] != "raw" {
		t.Fatalf("attempts = %v, want raw first", attempts)
	}
	if len(attempts) < 2 {
		t.Fatalf("degraded code decoded on the raw attempt: %v", attempts)
	}
}

func TestExtractExhaustsStrategies(t *testing.T) {
	e := NewExtractor()
	var attempts []string
	e.onAttempt = func(s string) { attempts = append(attempts, s) }

	blank := imaging.New(100, 100, color.White)
	if _, ok := e.Extract(blank); ok {
		t.Fatal("blank image should not decode")
	}

	want := []string{"raw", "inverted", "rotate90", "rotate270", "threshold-low", "threshold-high"}
	if len(attempts) != len(want) {
		t.Fatalf("attempts = %v, want %v", attempts, want)
	}
	for i := range want {
		if attempts[i] != want[i] {
			t.Fatalf("attempts = %v, want %v", attempts, want)
		}
	}
}

func TestExtractDownscalesOversized(t *testing.T) {
	e := NewExtractor()
	var attempts []string
	e.onAttempt = func(s string) { attempts = append(attempts, s) }

	blank := imaging.New(1200, 900, color.White)
	e.Extract(blank)

	seen := false
	for _, s := range attempts {
		if s == "downscaled" {
			seen = true
		}
	}
	if !seen {
		t.Fatalf("oversized image never tried downscaled: %v", attempts)
	}
}

func TestExtractNilImage(t *testing.T) {
	e := NewExtractor()
	if _, ok := e.Extract(nil); ok {
		t.Fatal("nil image should not decode")
	}
}

func TestExtractFromCrop(t *testing.T) {
	qr := qrImage(t, testPayload, 200)

	// Paste the code into a larger canvas so the crop matters.
	canvas := imaging.New(600, 600, color.White)
	canvas = imaging.Paste(canvas, qr, image.Pt(300, 100))

	e := NewExtractor()

	t.Run("crop region", func(t *testing.T) {
		text, ok := e.ExtractFromCrop(canvas, image.Rect(290, 90, 510, 310), false)
		if !ok || text != testPayload {
			t.Fatalf("crop extraction = %q, %v", text, ok)
		}
	})

	t.Run("enhanced", func(t *testing.T) {
		text, ok := e.ExtractFromCrop(canvas, image.Rect(290, 90, 510, 310), true)
		if !ok || text != testPayload {
			t.Fatalf("enhanced crop extraction = %q, %v", text, ok)
		}
	})

	t.Run("empty crop scans whole image", func(t *testing.T) {
		text, ok := e.ExtractFromCrop(canvas, image.Rectangle{}, false)
		if !ok || text != testPayload {
			t.Fatalf("full-image extraction = %q, %v", text, ok)
		}
	})
}

func TestBinarize(t *testing.T) {
	grad := imaging.New(2, 1, color.White)
	grad.Set(0, 0, color.Gray{Y: 80})
	grad.Set(1, 0, color.Gray{Y: 200})

	out := binarize(grad, 128).(*image.Gray)
	if got := out.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("dark pixel = %d, want 0", got)
	}
	if got := out.GrayAt(1, 0).Y; got != 255 {
		t.Errorf("light pixel = %d, want 255", got)
	}
}
