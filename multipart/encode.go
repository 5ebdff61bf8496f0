package multipart

import (
	"bufio"
	"io"
	"strings"
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// ContentType returns the Content-Type value for a body using the boundary.
func ContentType(boundary string) string {
	return FormData + "; boundary=" + boundary
}

// Encode writes the entries as a multipart/form-data body. Values must not contain the
// delimiter, which is practically guaranteed when the boundary comes from NewBoundary.
func Encode(w io.Writer, boundary string, entries ...Data) error {
	bw := bufio.NewWriter(w)

	for i, entry := range entries {
		if i > 0 {
			_, _ = bw.WriteString("\r\n")
		}

		_, _ = bw.WriteString("--" + boundary + "\r\n")
		writeHeaders(bw, entry)
		_, _ = bw.WriteString(entry.Value)
	}

	_, _ = bw.WriteString("\r\n--" + boundary + "--\r\n")

	return bw.Flush()
}

func writeHeaders(bw *bufio.Writer, entry Data) {
	_, _ = bw.WriteString(`Content-Disposition: form-data; name="`)
	_, _ = quoteEscaper.WriteString(bw, entry.Name)
	_ = bw.WriteByte('"')

	if len(entry.Filename) > 0 {
		_, _ = bw.WriteString(`; filename="`)
		_, _ = quoteEscaper.WriteString(bw, entry.Filename)
		_ = bw.WriteByte('"')
	}

	_, _ = bw.WriteString("\r\n")

	if len(entry.Type) > 0 {
		_, _ = bw.WriteString("Content-Type: " + entry.Type)
		if len(entry.Charset) > 0 {
			_, _ = bw.WriteString("; charset=" + entry.Charset)
		}

		_, _ = bw.WriteString("\r\n")
	}

	_, _ = bw.WriteString("\r\n")
}
