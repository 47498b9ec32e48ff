package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

const usage = `usage: tio <command> [flags]

commands:
  upload [-config path] [-encrypted] [-concurrency n] ref...
      upload files to Tenable.io; refs are local paths,
      azblob://container/blob, or s3://bucket/key
  version
      print the configured version
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	switch args[0] {
	case "upload":
		return runUpload(ctx, args[1:], stdout, stderr)
	case "version":
		return runVersion(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "tio: unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
}
