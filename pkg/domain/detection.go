package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/jx"
)

// InputMethod is how the user supplies the image for a submission.
type InputMethod string

const (
	// MethodUpload means the image bytes were uploaded as a file.
	MethodUpload InputMethod = "upload"
	// MethodURL means the image is referenced by a URL.
	MethodURL InputMethod = "url"
)

// ParseInputMethod maps a form value to an InputMethod. An empty value selects
// MethodUpload.
func ParseInputMethod(s string) (InputMethod, error) {
	switch InputMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodUpload:
		return MethodUpload, nil
	case MethodURL:
		return MethodURL, nil
	default:
		return "", fmt.Errorf("unknown input method %q", s)
	}
}

// RawResult is the detection payload exactly as the upstream API returned it.
type RawResult []byte

// Pretty returns the payload indented with two spaces.
func (r RawResult) Pretty() (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, r, "", "  "); err != nil {
		return "", fmt.Errorf("could not indent result: %w", err)
	}

	return buf.String(), nil
}

// Prediction is a single detected object. X and Y are the box center.
type Prediction struct {
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Confidence  float64
	Class       string
	ClassID     int
	DetectionID string
}

// Result is a typed view over the fields of a RawResult we know about.
type Result struct {
	InferenceID string
	Time        float64
	ImageWidth  int
	ImageHeight int
	Predictions []Prediction
}

// ParseResult decodes the known fields of raw. Unknown fields are skipped.
func ParseResult(raw RawResult) (*Result, error) {
	var res Result
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "inference_id":
			res.InferenceID, err = d.Str()
		case "time":
			res.Time, err = decodeNumber(d)
		case "image":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var v float64
				var err error
				switch key {
				case "width":
					v, err = decodeNumber(d)
					res.ImageWidth = int(v)
				case "height":
					v, err = decodeNumber(d)
					res.ImageHeight = int(v)
				default:
					err = d.Skip()
				}

				return err
			})
		case "predictions":
			err = d.Arr(func(d *jx.Decoder) error {
				p, err := decodePrediction(d)
				if err != nil {
					return err
				}
				res.Predictions = append(res.Predictions, p)

				return nil
			})
		default:
			err = d.Skip()
		}

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not decode detection result: %w", err)
	}

	return &res, nil
}

func decodePrediction(d *jx.Decoder) (Prediction, error) {
	var p Prediction
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "x":
			p.X, err = decodeNumber(d)
		case "y":
			p.Y, err = decodeNumber(d)
		case "width":
			p.Width, err = decodeNumber(d)
		case "height":
			p.Height, err = decodeNumber(d)
		case "confidence":
			p.Confidence, err = decodeNumber(d)
		case "class":
			p.Class, err = d.Str()
		case "class_id":
			var v float64
			v, err = decodeNumber(d)
			p.ClassID = int(v)
		case "detection_id":
			p.DetectionID, err = d.Str()
		default:
			err = d.Skip()
		}

		return err
	})

	return p, err
}

// decodeNumber accepts both JSON numbers and numeric strings; some model
// versions report image dimensions as strings.
func decodeNumber(d *jx.Decoder) (float64, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}

		return strconv.ParseFloat(s, 64)
	case jx.Null:
		return 0, d.Null()
	default:
		return d.Float64()
	}
}
