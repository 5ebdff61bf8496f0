package decoder

import (
	"strconv"
	"strings"
	"testing"

	"github.com/indigo-web/multipart/config"
	"github.com/indigo-web/multipart/source"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const propBoundary = "XY"

// noisy draws a string full of delimiter-like garbage which nevertheless never contains
// the actual boundary.
func noisy(t *rapid.T, label string, maxRepeat int) string {
	seed := rapid.SliceOfN(rapid.SampledFrom([]byte("a\r\n-XY")), 0, 16).Draw(t, label+" seed")
	repeat := rapid.IntRange(0, maxRepeat).Draw(t, label+" repeat")
	str := strings.Repeat(string(seed), repeat)

	for strings.Contains(str, "--"+propBoundary) {
		str = strings.ReplaceAll(str, "--"+propBoundary, "--"+propBoundary[1:]+propBoundary[:1])
	}

	return str
}

func TestChunkingInvariance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(t, "parts")
		parts := make([]part, n)
		for i := range parts {
			parts[i] = part{
				header:  "N: " + strconv.Itoa(i) + "\r\n\r\n",
				payload: noisy(t, "payload", 2000),
			}
		}

		body := encode(propBoundary, parts...)
		if rapid.Bool().Draw(t, "preamble") {
			body = noisy(t, "preamble", 100) + "\r\n" + body
		}

		sizes := rapid.SliceOfN(rapid.IntRange(0, 12000), 0, 24).Draw(t, "sizes")
		cfg := config.Default().Decoder

		reference, err := New(source.NewStatic([]byte(body)), []byte(propBoundary), cfg)
		require.NoError(t, err)
		want := collect(t, reference)

		chunked, err := New(source.Split([]byte(body), sizes...), []byte(propBoundary), cfg)
		require.NoError(t, err)
		got := collect(t, chunked)

		require.Equal(t, want, got)
		require.Equal(t, n, chunked.Parts())
		require.Equal(t, uint64(len(body)-2), chunked.Len())

		var (
			headers  []string
			payloads = []string{""}
		)

		for _, e := range got {
			switch e.Kind {
			case Header:
				headers = append(headers, e.Data)
			case Payload:
				require.NotEmpty(t, e.Data)
				require.LessOrEqual(t, len(e.Data), cfg.MaxChunk)
				payloads[len(payloads)-1] += e.Data
			case EndOfPart:
				payloads = append(payloads, "")
			}
		}

		require.Len(t, headers, n)
		require.Len(t, payloads, n)

		for i, p := range parts {
			require.Equal(t, p.header, headers[i])
			require.Equal(t, p.payload, payloads[i])
		}
	})
}
