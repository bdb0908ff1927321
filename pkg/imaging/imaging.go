// Package imaging shrinks images before they are sent to the detection API.
// Images arrive and leave as data URIs so callers can hand the result straight
// to the detector client.
package imaging

import (
	"agroscan/pkg/serrors"
	"bytes"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"math"

	dimaging "github.com/disintegration/imaging"
	"github.com/go-faster/errors"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

const (
	// DefaultMaxDimension is the largest width or height an image may keep.
	DefaultMaxDimension = 1500
	// DefaultQuality is the JPEG quality used when re-encoding.
	DefaultQuality = 100
	// DefaultMaxPixels bounds the decoded size of an input image.
	DefaultMaxPixels = 50_000_000
	// JPEGMediaType is the media type of every data URI produced by Downscale.
	JPEGMediaType = "image/jpeg"
)

// Options controls the output of Downscale. Zero values fall back to the defaults.
type Options struct {
	// MaxDimension bounds both sides of the output image.
	MaxDimension int
	// Quality is the JPEG quality, 1..100.
	Quality int
	// MaxPixels rejects inputs whose width*height exceeds it, before decoding.
	MaxPixels int64
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}

	return o
}

// FitWithin returns the size of a width x height image scaled so that neither
// side exceeds maxDim. The longer side is pinned to maxDim (height when the
// sides are equal) and the other keeps the aspect ratio, rounded to the nearest
// pixel. Images already within bounds are returned unchanged.
func FitWithin(width, height, maxDim int) (int, int) {
	if width > height {
		if width > maxDim {
			height = scaleSide(height, maxDim, width)
			width = maxDim
		}
	} else if height > maxDim {
		width = scaleSide(width, maxDim, height)
		height = maxDim
	}

	return width, height
}

func scaleSide(side, num, den int) int {
	scaled := int(math.Round(float64(side) * float64(num) / float64(den)))
	if scaled < 1 {
		return 1
	}

	return scaled
}

// Resize decodes raw image bytes, applies the EXIF orientation, scales them to
// fit opts.MaxDimension and returns them JPEG-encoded together with the output
// bounds. Images larger than opts.MaxPixels are rejected before any pixel is
// decoded.
func Resize(raw []byte, opts Options) ([]byte, image.Rectangle, error) {
	opts = opts.withDefaults()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, image.Rectangle{}, serrors.Wrap(serrors.ErrBadRequest, err, "could not decode image")
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > opts.MaxPixels {
		return nil, image.Rectangle{}, serrors.With(serrors.ErrBadRequest,
			"image is too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, opts.MaxPixels)
	}

	src, err := dimaging.Decode(bytes.NewReader(raw), dimaging.AutoOrientation(true))
	if err != nil {
		return nil, image.Rectangle{}, serrors.Wrap(serrors.ErrBadRequest, err, "could not decode image")
	}

	sb := src.Bounds()
	w, h := FitWithin(sb.Dx(), sb.Dy(), opts.MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, image.Rectangle{}, errors.Wrap(err, "encode jpeg")
	}

	return buf.Bytes(), dst.Bounds(), nil
}

// Downscale decodes the image carried by dataURI, shrinks it to fit
// opts.MaxDimension and re-encodes it as a JPEG data URI. Images within bounds
// are still re-encoded. A data URI that cannot be parsed or decoded yields an
// ErrBadRequest error.
func Downscale(dataURI string, opts Options) (string, error) {
	du, err := dataurl.DecodeString(dataURI)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid data URI")
	}

	out, _, err := Resize(du.Data, opts)
	if err != nil {
		return "", err
	}

	return Encode(out, JPEGMediaType), nil
}

// Encode wraps raw bytes into a base64 data URI of the given media type.
func Encode(data []byte, mediaType string) string {
	return dataurl.New(data, mediaType).String()
}

// Decode returns the payload and media type of a data URI.
func Decode(dataURI string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(dataURI)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode data URI")
	}

	return du.Data, du.ContentType(), nil
}
