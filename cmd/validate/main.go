package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jwebster45206/adventure-engine/pkg/content"
	"github.com/jwebster45206/adventure-engine/pkg/persistence"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  validate -shape <outline|world|segment|examination|feasibility> <response.txt>
  validate -snapshot <snapshot.json>
`)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	shape := fs.String("shape", "", "validate a saved provider response of this shape")
	snapshot := fs.Bool("snapshot", false, "validate a saved adventure snapshot")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || (*shape == "") == !*snapshot {
		usage(stderr)
		return 2
	}

	filename := fs.Arg(0)
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read file %s: %v\n", filename, err)
		return 1
	}

	fmt.Fprintf(stdout, "Validating %s...\n", filename)
	if *snapshot {
		return checkSnapshot(data, stdout, stderr)
	}
	return checkResponse(content.Shape(*shape), string(data), stdout, stderr)
}

func checkSnapshot(data []byte, stdout, stderr io.Writer) int {
	if err := persistence.Validate(data); err != nil {
		var verr *persistence.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(stderr, "Snapshot is invalid:")
			for _, p := range verr.Problems {
				fmt.Fprintf(stderr, "  - %s\n", p)
			}
			return 1
		}
		fmt.Fprintf(stderr, "Validation failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Snapshot is valid!")
	return 0
}

func checkResponse(shape content.Shape, raw string, stdout, stderr io.Writer) int {
	v, err := content.Inspect(shape, raw)
	if err != nil {
		switch content.KindOf(err) {
		case content.KindParse:
			fmt.Fprintf(stderr, "Response is not valid JSON (a repair would be attempted): %v\n", err)
		case content.KindShape:
			fmt.Fprintf(stderr, "Response has the wrong shape (the request would be resent): %v\n", err)
		default:
			fmt.Fprintf(stderr, "Validation failed: %v\n", err)
		}
		return 1
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "failed to encode result: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Response is a valid %s:\n%s\n", shape, out)
	return 0
}
