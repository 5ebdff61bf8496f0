package multipart

import (
	"github.com/dchest/uniuri"
	"github.com/indigo-web/multipart/internal/strutil"
	"github.com/indigo-web/multipart/status"
	"github.com/indigo-web/utils/strcomp"
)

const (
	FormData = "multipart/form-data"
	// boundaryLength is how long generated boundaries are. RFC 2046 limits them to 70 characters.
	boundaryLength = 30
)

// Boundary extracts the boundary from the multipart/form-data Content-Type value.
func Boundary(contentType string) (boundary string, err error) {
	mime, params := strutil.CutHeader(contentType)
	if !strcomp.EqualFold(mime, FormData) {
		return "", status.ErrUnsupportedMediaType
	}

	if len(params) == 0 {
		return "", status.ErrMissingBoundary
	}

	for key, value := range strutil.WalkKV(params) {
		switch {
		case len(key) == 0:
			return "", status.ErrBadRequest
		case strcomp.EqualFold(key, "boundary"):
			if len(boundary) != 0 {
				return "", status.ErrBadRequest
			}

			boundary = value
		}
	}

	if len(boundary) == 0 {
		return "", status.ErrMissingBoundary
	}

	return boundary, nil
}

// NewBoundary generates a random boundary.
func NewBoundary() string {
	return uniuri.NewLen(boundaryLength)
}
