// Package photo implements the adaptive image compression pipeline that
// fits captured photographs into the upload payload budget. Resolution
// is reduced first (largest size win, smallest perceptual cost), then
// JPEG quality is walked down in fixed steps until the encoded bytes fit
// or the quality floor is reached.
package photo

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"

	"github.com/mxscan/scankit/logger"
)

const (
	// DefaultMaxDimension is the resize bound: neither side of the
	// working image exceeds this many pixels. Images already within
	// bounds are never upscaled.
	DefaultMaxDimension = 1280
	// DefaultStartQuality is the initial JPEG quality.
	DefaultStartQuality = 82
	// DefaultQualityStep is subtracted from the quality on each retry.
	DefaultQualityStep = 10
	// DefaultQualityFloor is the stopping condition for the budget
	// search, not a guarantee — an image may still exceed budget at the
	// floor and is returned as-is for the caller to judge.
	DefaultQualityFloor = 50
	// DefaultBudget is the byte budget for the encoded image. The
	// transport caps the request body, and base64 framing inflates the
	// bytes by roughly a third, so this sits well under the raw cap.
	DefaultBudget = 3 << 20
)

// ErrUndecodable is returned when the input bytes are not a decodable
// image. The caller can drop that one photo without blocking the rest of
// a submission.
var ErrUndecodable = errors.New("image cannot be decoded")

// Result is the outcome of one compression run.
type Result struct {
	// Bytes is the encoded JPEG.
	Bytes []byte
	// Quality is the final JPEG quality used.
	Quality int
	// Width and Height are the dimensions after any resize.
	Width, Height int
	// WithinBudget reports whether Bytes fits the byte budget. False
	// means the floor was reached first; the image is still usable.
	WithinBudget bool
}

// DataURL renders the result as a base64 JPEG data URL, the form the
// scan submission API expects.
func (r Result) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(r.Bytes)
}

// Pipeline converts raw captured images into byte-budgeted encoded
// images. A zero-configured pipeline from New is ready to use.
type Pipeline struct {
	maxDimension int
	startQuality int
	qualityStep  int
	qualityFloor int
	budget       int
	log          logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxDimension overrides the resize bound.
func WithMaxDimension(px int) Option {
	return func(p *Pipeline) {
		if px > 0 {
			p.maxDimension = px
		}
	}
}

// WithBudget overrides the encoded byte budget.
func WithBudget(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.budget = n
		}
	}
}

// WithQuality overrides the start quality, step and floor of the budget
// search. Zero values keep the defaults.
func WithQuality(start, step, floor int) Option {
	return func(p *Pipeline) {
		if start > 0 {
			p.startQuality = start
		}
		if step > 0 {
			p.qualityStep = step
		}
		if floor > 0 {
			p.qualityFloor = floor
		}
	}
}

// New returns a Pipeline with the given options applied.
func New(log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		maxDimension: DefaultMaxDimension,
		startQuality: DefaultStartQuality,
		qualityStep:  DefaultQualityStep,
		qualityFloor: DefaultQualityFloor,
		budget:       DefaultBudget,
		log:          log.WithPrefix("[photo]"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compress decodes raw, downscales it to fit the dimension bound, then
// searches downward over JPEG quality until the encoded size fits the
// budget or the quality floor is reached. It fails only for input that
// cannot be decoded at all.
func (p *Pipeline) Compress(raw []byte) (Result, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, errors.WithDetail(ErrUndecodable, err.Error())
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > p.maxDimension || height > p.maxDimension {
		width, height = fit(width, height, p.maxDimension)
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
	}

	quality := p.startQuality
	encoded, err := encodeJPEG(img, quality)
	if err != nil {
		// jpeg.Encode only fails on writer errors, which a bytes.Buffer
		// never produces; treat it as undecodable input regardless.
		return Result{}, errors.WithDetail(ErrUndecodable, err.Error())
	}
	for len(encoded) > p.budget && quality > p.qualityFloor {
		quality -= p.qualityStep
		if quality < p.qualityFloor {
			quality = p.qualityFloor
		}
		next, err := encodeJPEG(img, quality)
		if err != nil {
			return Result{}, errors.WithDetail(ErrUndecodable, err.Error())
		}
		encoded = next
	}

	res := Result{
		Bytes:        encoded,
		Quality:      quality,
		Width:        width,
		Height:       height,
		WithinBudget: len(encoded) <= p.budget,
	}
	p.log.Debug("compressed %s %dx%d to %d bytes at quality %d (budget %d)",
		format, width, height, len(encoded), quality, p.budget)
	if !res.WithinBudget {
		p.log.Warn("image still exceeds budget at quality floor: %d > %d bytes", len(encoded), p.budget)
	}
	return res, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit scales (width, height) uniformly so both sides are at most max,
// preserving aspect ratio. Rounded dimensions never drop below one
// pixel.
func fit(width, height, max int) (int, int) {
	var scale float64
	if width >= height {
		scale = float64(max) / float64(width)
	} else {
		scale = float64(max) / float64(height)
	}
	w := int(float64(width)*scale + 0.5)
	h := int(float64(height)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
