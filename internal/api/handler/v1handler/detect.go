package v1handler

import (
	"agroscan/pkg/detector"
	"agroscan/pkg/logger"
	"agroscan/pkg/serrors"
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

const (
	// MsgProcessing is the only failure message the passthrough returns.
	MsgProcessing = "error processing image"
	// MsgMethodNotAllowed is returned for anything but POST.
	MsgMethodNotAllowed = "method not allowed"
)

// DecodeDetectRequest reads {"image": ..., "image_url": ...} from r. Other
// fields are ignored and null values are treated as absent.
func DecodeDetectRequest(r io.Reader) (detector.Input, error) {
	var in detector.Input
	d := jx.Decode(r, 64*1024)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var target *string
		switch key {
		case "image":
			target = &in.Image
		case "image_url":
			target = &in.ImageURL
		default:
			return d.Skip()
		}

		if d.Next() == jx.Null {
			return d.Null()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		*target = v

		return nil
	})
	if err != nil {
		return detector.Input{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}

	return in, nil
}

// Detect forwards {image, image_url} to the detection API and replies with the
// upstream JSON unmodified. Only POST is accepted. Every failure, invalid input
// included, is answered with 500 and a generic message.
func (h Handler) Detect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeMessage(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)

		return
	}

	in, err := DecodeDetectRequest(r.Body)
	if err == nil && in.Empty() {
		err = serrors.With(serrors.ErrBadRequest, "image or image_url is required")
	}
	if err != nil {
		logger.Error(ctx, "could not process image", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, MsgProcessing)

		return
	}

	res, err := h.deps.Detector.Forward(ctx, in)
	if err != nil {
		logger.Error(ctx, "could not process image", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, MsgProcessing)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res)
}
