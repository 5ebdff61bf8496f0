package status

// Code is an HTTP status code a caller may answer with when decoding fails. Only the
// codes decoding can actually produce are listed.
type Code uint16

const (
	BadRequest            Code = 400 // RFC 9110, 15.5.1
	RequestEntityTooLarge Code = 413 // RFC 9110, 15.5.14
	UnsupportedMediaType  Code = 415 // RFC 9110, 15.5.16
	HeaderFieldsTooLarge  Code = 431 // RFC 6585, 5
	InternalServerError   Code = 500 // RFC 9110, 15.6.1
)

func Text(code Code) string {
	switch code {
	case BadRequest:
		return "Bad Request"
	case RequestEntityTooLarge:
		return "Request Entity Too Large"
	case UnsupportedMediaType:
		return "Unsupported Media Type"
	case HeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	case InternalServerError:
		return "Internal Server Error"
	default:
		return ""
	}
}
