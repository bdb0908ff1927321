package submission

import (
	"agroscan/pkg/domain"
	"context"
)

// Service runs a single form submission: validation, preprocessing and the
// detection call.
type Service interface {
	Submit(ctx context.Context, sub Submission) (domain.RawResult, error)
}
