// Package detector defines the client used to send images to a hosted
// object-detection API.
package detector

import (
	"agroscan/pkg/domain"
	"context"
	"strings"
)

// Input carries the image for a single detection call. Exactly one of the
// fields is expected to be set; ImageURL wins when both are.
type Input struct {
	// Image is an inline image, typically a base64 data URI.
	Image string
	// ImageURL is a publicly reachable image address.
	ImageURL string
}

// Empty reports whether neither field holds a value.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.Image) == "" && strings.TrimSpace(in.ImageURL) == ""
}

// Client is the abstraction over detection providers. Both calls return the
// provider payload unmodified.
//
//go:generate mockgen -package mockdetector -source=interface.go -destination=mock/mockdetector.go *
type Client interface {
	// Query sends the image in the query string of a GET request.
	Query(ctx context.Context, in Input) (domain.RawResult, error)
	// Forward sends the image as a JSON body of a POST request.
	Forward(ctx context.Context, in Input) (domain.RawResult, error)
}
