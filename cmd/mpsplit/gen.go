package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dchest/uniuri"

	"github.com/indigo-web/multipart/multipart"
)

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	parts := fs.Int("parts", 3, "number of parts")
	size := fs.Int("size", 1024, "payload size of every part")
	boundary := fs.String("boundary", "", "boundary to use, random if empty")
	_ = fs.Parse(args)

	if len(*boundary) == 0 {
		*boundary = multipart.NewBoundary()
	}

	// so the output can be piped straight into split
	fmt.Fprintln(os.Stderr, multipart.ContentType(*boundary))

	out := bufio.NewWriter(os.Stdout)
	if err := gen(out, *boundary, *parts, *size); err != nil {
		return err
	}

	return out.Flush()
}

// gen writes a body of alternating text fields and files with random alphanumeric payloads.
func gen(w io.Writer, boundary string, parts, size int) error {
	entries := make([]multipart.Data, parts)

	for i := range entries {
		entries[i].Name = "field" + strconv.Itoa(i)
		if i%2 == 1 {
			entries[i].Filename = "file" + strconv.Itoa(i) + ".bin"
			entries[i].Type = "application/octet-stream"
		}

		if size > 0 {
			entries[i].Value = uniuri.NewLen(size)
		}
	}

	return multipart.Encode(w, boundary, entries...)
}
