package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/indigo-web/multipart/config"
	"github.com/indigo-web/multipart/source"
)

func runDechunk(args []string) error {
	fs := flag.NewFlagSet("dechunk", flag.ExitOnError)
	trailer := fs.Bool("trailer", false, "bodies are followed by trailer fields")
	_ = fs.Parse(args)

	out := bufio.NewWriter(os.Stdout)
	d := newDechunker(*trailer)

	if fs.NArg() == 0 {
		if err := d.report("stdin", out, os.Stdin); err != nil {
			return err
		}

		return out.Flush()
	}

	for _, path := range fs.Args() {
		if err := d.file(out, path); err != nil {
			return err
		}
	}

	return out.Flush()
}

// dechunker strips the chunked transfer encoding off bodies one by one, so they can be
// fed to split as is. The read buffer and the reader are shared between the bodies.
type dechunker struct {
	buff    []byte
	reader  *source.Reader
	trailer bool
}

func newDechunker(trailer bool) *dechunker {
	return &dechunker{
		buff:    make([]byte, config.Default().Source.ReadBufferSize),
		reader:  source.NewReader(nil),
		trailer: trailer,
	}
}

func (d *dechunker) file(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return d.report(path, w, file)
}

func (d *dechunker) report(name string, w io.Writer, r io.Reader) error {
	rest, err := d.run(w, r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if rest > 0 {
		fmt.Fprintf(os.Stderr, "mpsplit: %s: %d bytes after the body are ignored\n", name, rest)
	}

	return nil
}

// run writes the decoded body into w and returns the number of bytes following it.
func (d *dechunker) run(w io.Writer, r io.Reader) (rest int64, err error) {
	d.reader.Reset(source.NewChunked(source.FromReader(r, d.buff), d.trailer))
	if _, err = io.Copy(w, d.reader); err != nil {
		return 0, err
	}

	extra := int64(len(d.reader.Extra()))
	rest, err = io.Copy(io.Discard, r)

	return extra + rest, err
}
