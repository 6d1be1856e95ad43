// Command pklib compresses and decompresses files in the PKWare Data
// Compression Library "implode"/"explode" format.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/danielsreichenbach/pklib-rs"
	"github.com/ogier/pflag"
)

const usageStr = `Usage: pklib <command> [options] <args>

Commands:
  compress <input> <output>    compress input to output
  decompress <input> <output>  decompress input to output
  info <input>                 print header and size information about input

Run 'pklib <command> -h' for command-specific options.
`

func main() {
	log.SetPrefix("pklib: ")
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageStr)
		os.Exit(3)
	}

	var err error
	switch os.Args[1] {
	case "compress":
		err = runCompress(os.Args[2:])
	case "decompress":
		err = runDecompress(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usageStr)
		return
	default:
		fmt.Fprint(os.Stderr, usageStr)
		os.Exit(3)
	}

	if err != nil {
		log.Print(err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit code the CLI surface
// promises: 1 for I/O failures, 2 for format errors, 3 for usage errors.
func exitCode(err error) int {
	var usage *usageError
	if errors.As(err, &usage) {
		return 3
	}
	switch {
	case errors.Is(err, pklib.ErrInvalidHeader),
		errors.Is(err, pklib.ErrUnexpectedEOF),
		errors.Is(err, pklib.ErrInvalidDistance),
		errors.Is(err, pklib.ErrInvalidLengthCode),
		errors.Is(err, pklib.ErrInvalidDictionarySize),
		errors.Is(err, pklib.ErrInvalidMode):
		return 2
	default:
		return 1
	}
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func runCompress(args []string) error {
	fs := pflag.NewFlagSet("compress", pflag.ContinueOnError)
	mode := fs.StringP("mode", "m", "binary", "compression mode: binary or ascii")
	dictSize := fs.StringP("dict-size", "d", "2k", "dictionary size: 1k, 2k, or 4k")
	force := fs.BoolP("force", "f", false, "overwrite output if it exists")
	verbose := fs.BoolP("verbose", "v", false, "print progress information")
	if err := fs.Parse(args); err != nil {
		return &usageError{err.Error()}
	}
	if fs.NArg() != 2 {
		return &usageError{"compress requires <input> <output>"}
	}
	input, output := fs.Arg(0), fs.Arg(1)

	m, err := parseMode(*mode)
	if err != nil {
		return &usageError{err.Error()}
	}
	d, err := parseDictSize(*dictSize)
	if err != nil {
		return &usageError{err.Error()}
	}

	if _, statErr := os.Stat(output); statErr == nil && !*force {
		return &usageError{fmt.Sprintf("output file %q already exists (use --force to overwrite)", output)}
	}

	raw, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	if *verbose {
		log.Printf("compressing %s (%d bytes), mode=%s dict=%s", input, len(raw), m, d)
	}

	start := time.Now()
	compressed, err := pklib.ImplodeBytes(raw, m, d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, compressed, 0o644); err != nil {
		return err
	}

	if *verbose {
		ratio := float64(len(compressed)) / float64(len(raw)) * 100
		log.Printf("wrote %s (%d bytes, %.1f%%) in %s", output, len(compressed), ratio, time.Since(start))
	}
	return nil
}

func runDecompress(args []string) error {
	fs := pflag.NewFlagSet("decompress", pflag.ContinueOnError)
	force := fs.BoolP("force", "f", false, "overwrite output if it exists")
	verbose := fs.BoolP("verbose", "v", false, "print progress information")
	if err := fs.Parse(args); err != nil {
		return &usageError{err.Error()}
	}
	if fs.NArg() != 2 {
		return &usageError{"decompress requires <input> <output>"}
	}
	input, output := fs.Arg(0), fs.Arg(1)

	if _, statErr := os.Stat(output); statErr == nil && !*force {
		return &usageError{fmt.Sprintf("output file %q already exists (use --force to overwrite)", output)}
	}

	compressed, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	start := time.Now()
	raw, err := pklib.ExplodeBytes(compressed)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, raw, 0o644); err != nil {
		return err
	}

	if *verbose {
		log.Printf("wrote %s (%d bytes) from %s (%d bytes) in %s", output, len(raw), input, len(compressed), time.Since(start))
	}
	return nil
}

func runInfo(args []string) error {
	fs := pflag.NewFlagSet("info", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return &usageError{err.Error()}
	}
	if fs.NArg() != 1 {
		return &usageError{"info requires <input>"}
	}
	input := fs.Arg(0)

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	fmt.Printf("file:              %s\n", input)
	fmt.Printf("size:              %d bytes\n", len(data))

	r, err := pklib.NewExplodeReader(bytes.NewReader(data))
	if err != nil {
		fmt.Printf("status:            invalid or corrupted (%v)\n", err)
		return nil
	}
	fmt.Printf("compression mode:  %s\n", r.Mode())
	fmt.Printf("dictionary size:   %s\n", r.DictionarySize())

	decompressed, err := io.ReadAll(r)
	if err != nil {
		fmt.Printf("status:            invalid or corrupted (%v)\n", err)
		return nil
	}
	ratio := float64(len(data)) / float64(len(decompressed)) * 100
	fmt.Printf("decompressed size: %d bytes\n", len(decompressed))
	fmt.Printf("compression ratio: %.1f%%\n", ratio)
	fmt.Printf("status:            valid\n")
	return nil
}

func parseMode(s string) (pklib.Mode, error) {
	switch s {
	case "binary", "Binary", "0":
		return pklib.Binary, nil
	case "ascii", "ASCII", "1":
		return pklib.ASCII, nil
	default:
		return 0, fmt.Errorf("invalid mode %q: expected binary or ascii", s)
	}
}

func parseDictSize(s string) (pklib.DictionarySize, error) {
	switch s {
	case "1k", "1K", "1024":
		return pklib.Size1K, nil
	case "2k", "2K", "2048":
		return pklib.Size2K, nil
	case "4k", "4K", "4096":
		return pklib.Size4K, nil
	default:
		return 0, fmt.Errorf("invalid dictionary size %q: expected 1k, 2k, or 4k", s)
	}
}
