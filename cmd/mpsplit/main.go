// Command mpsplit splits multipart/form-data bodies into files and generates synthetic
// bodies for testing.
//
// Usage:
//
//	mpsplit split -boundary B [-chunked] [-config cfg.yaml] [-out dir] [file]
//	mpsplit split -content-type "multipart/form-data; boundary=B" [file]
//	mpsplit gen -parts 3 -size 65536 > body.bin
//	mpsplit dechunk [-trailer] [file...]
//	mpsplit version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error

	switch os.Args[1] {
	case "split":
		err = runSplit(ctx, os.Args[2:])
	case "gen":
		err = runGen(os.Args[2:])
	case "dechunk":
		err = runDechunk(os.Args[2:])
	case "version":
		fmt.Println("mpsplit", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "mpsplit: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  mpsplit split [flags] [file]      split a multipart body into files, print a JSON manifest
  mpsplit gen [flags]               write a synthetic multipart body to stdout
  mpsplit dechunk [flags] [files]   strip the chunked transfer encoding off bodies
  mpsplit version                   print the version

Run "mpsplit <command> -h" for the command flags.`)
}
