package status

import "errors"

type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest           = NewError(BadRequest, "bad request")
	ErrUnexpectedEOF        = NewError(BadRequest, "multipart body ended before the closing delimiter")
	ErrBadChunk             = NewError(BadRequest, "malformed chunk-encoded data")
	ErrBadHeaders           = NewError(BadRequest, "malformed part headers")
	ErrMissingBoundary      = NewError(BadRequest, "no boundary in multipart content type")
	ErrHeadersTooLarge      = NewError(HeaderFieldsTooLarge, "too large part headers")
	ErrBodyTooLarge         = NewError(RequestEntityTooLarge, "request body is too large")
	ErrUnsupportedMediaType = NewError(UnsupportedMediaType, "unsupported media type")
	ErrUnsupportedCharset   = NewError(UnsupportedMediaType, "unsupported charset")
	ErrBadEncoding          = NewError(BadRequest, "value doesn't match its charset")
)

// CodeOf returns the code carried by err, or InternalServerError for anything that
// didn't originate from this package.
func CodeOf(err error) Code {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return InternalServerError
}
