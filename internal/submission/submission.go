// Package submission implements the detection form: it validates what the user
// picked, shrinks uploads and queries the detection API.
package submission

import (
	"agroscan/internal/config"
	"agroscan/pkg/detector"
	"agroscan/pkg/domain"
	"agroscan/pkg/imaging"
	"agroscan/pkg/logger"
	"agroscan/pkg/serrors"
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Messages shown to users. Every processing failure collapses to MsgProcessing.
const (
	MsgMissingInput = "please select an image or enter a valid URL"
	MsgInvalidFile  = "please select a valid image file"
	MsgProcessing   = "error processing image"
)

// Submission is what the form collected. Only the field matching Method is used.
type Submission struct {
	Method       domain.InputMethod
	ImageDataURI string
	ImageURL     string
}

// Validate checks that the selected method carries a value and returns the
// submission with the unused field cleared and the URL normalized.
func (s Submission) Validate() (Submission, error) {
	switch s.Method {
	case domain.MethodUpload, "":
		if strings.TrimSpace(s.ImageDataURI) == "" {
			return s, serrors.With(serrors.ErrBadRequest, MsgMissingInput)
		}

		return Submission{Method: domain.MethodUpload, ImageDataURI: s.ImageDataURI}, nil
	case domain.MethodURL:
		if strings.TrimSpace(s.ImageURL) == "" {
			return s, serrors.With(serrors.ErrBadRequest, MsgMissingInput)
		}
		u, err := NormalizeImageURL(s.ImageURL)
		if err != nil {
			return s, serrors.Wrap(serrors.ErrBadRequest, err, MsgMissingInput)
		}

		return Submission{Method: domain.MethodURL, ImageURL: u}, nil
	default:
		return s, serrors.With(serrors.ErrBadRequest, MsgMissingInput)
	}
}

// FromFile encodes an uploaded file as a data URI. contentType comes from the
// upload; when it is empty or generic the bytes are sniffed. Non-image files are
// rejected with MsgInvalidFile.
func FromFile(contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", serrors.With(serrors.ErrBadRequest, MsgMissingInput)
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	if !strings.HasPrefix(contentType, "image/") {
		return "", serrors.With(serrors.ErrBadRequest, MsgInvalidFile)
	}

	return imaging.Encode(data, contentType), nil
}

// Options configure preprocessing of uploads.
type Options struct {
	// Imaging bounds and encodes uploaded images before they are sent.
	Imaging imaging.Options
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Imaging: imaging.Options{
			MaxDimension: cfg.Imaging.MaxDimension,
			Quality:      cfg.Imaging.JPEGQuality,
			MaxPixels:    cfg.Imaging.MaxPixels,
		},
	}
}

// service is the concrete implementation of Service.
type service struct {
	options Options
	client  detector.Client
}

// Submit validates sub and, when valid, sends it to the detection API with a
// single GET. Uploads are downscaled first. A submission without input fails
// before any network call. Errors after validation carry MsgProcessing; the
// cause stays in the chain for logs.
func (s service) Submit(ctx context.Context, sub Submission) (domain.RawResult, error) {
	sub, err := sub.Validate()
	if err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx, zap.String("method", string(sub.Method)))

	var in detector.Input
	switch sub.Method {
	case domain.MethodURL:
		in.ImageURL = sub.ImageURL
	default:
		resized, err := imaging.Downscale(sub.ImageDataURI, s.options.Imaging)
		if err != nil {
			logger.Warn(ctx, "could not downscale upload", zap.Error(err))

			return nil, serrors.Wrap(serrors.ErrBadRequest, err, MsgProcessing)
		}
		in.Image = resized
	}

	res, err := s.client.Query(ctx, in)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, MsgProcessing)
	}

	logger.Debug(ctx, "detection completed", zap.Int("bytes", len(res)))

	return res, nil
}

// New creates a Service that sends submissions through client.
func New(client detector.Client, options Options) Service {
	return &service{
		options: options,
		client:  client,
	}
}
