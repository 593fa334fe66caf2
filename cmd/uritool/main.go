// Command uritool parses, normalizes and sanitizes endpoint URIs.
//
// Usage:
//
//	uritool parse     [-raw] [-lenient] <uri>...
//	uritool normalize <uri>...
//	uritool sanitize  <uri>...
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/IvanBrykalov/cachekit/uri"
)

var (
	keyColor   = color.New(color.FgCyan, color.Bold)
	valueColor = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed)
	dimColor   = color.New(color.Faint)
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	useRaw := fs.Bool("raw", false, "do not percent-decode values")
	lenient := fs.Bool("lenient", false, "accept a trailing &")
	noColor := fs.Bool("no-color", false, "disable colored output")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if *noColor {
		color.NoColor = true
	}

	var cmd func(string, io.Writer) error
	switch args[0] {
	case "parse":
		cmd = func(s string, w io.Writer) error { return parse(s, *useRaw, *lenient, w) }
	case "normalize":
		cmd = normalize
	case "sanitize":
		cmd = func(s string, w io.Writer) error {
			_, err := fmt.Fprintln(w, uri.SanitizeURI(s))
			return err
		}
	default:
		usage(stderr)
		return 2
	}

	status := 0
	for _, s := range fs.Args() {
		if err := cmd(s, stdout); err != nil {
			errColor.Fprintf(stderr, "%s: %v\n", uri.SanitizeURI(s), err)
			status = 1
		}
	}
	return status
}

func parse(s string, useRaw, lenient bool, w io.Writer) error {
	q, ok := uri.ExtractQuery(s)
	if !ok {
		q = s
	}
	p, err := uri.ParseQuery(q, useRaw, lenient)
	if err != nil {
		return err
	}
	dimColor.Fprintln(w, uri.SanitizeURI(uri.StripQuery(s)))
	for _, k := range p.Keys() {
		for _, v := range p.Values(k) {
			if uri.IsSecretKey(k) {
				v = uri.Redacted
			}
			keyColor.Fprint(w, k)
			fmt.Fprint(w, " = ")
			valueColor.Fprintln(w, v)
		}
	}
	return nil
}

func normalize(s string, w io.Writer) error {
	n, err := uri.NormalizeURI(s)
	if err != nil {
		var se *uri.SyntaxError
		if errors.As(err, &se) {
			return fmt.Errorf("%s", se.Reason)
		}
		return err
	}
	_, err = fmt.Fprintln(w, n)
	return err
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: uritool parse|normalize|sanitize [-raw] [-lenient] [-no-color] <uri>...")
}
