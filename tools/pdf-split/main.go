// seehuhn.de/go/pdfsplit - split PDF files into single-page documents
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Pdf-split writes every page of a PDF file into a file of its own.
//
// Usage:
//
//	pdf-split [options] input.pdf output_prefix
//
// The pages are written to output/<output_prefix>_1.pdf,
// output/<output_prefix>_2.pdf, and so on.  Pages which cannot be read are
// reported and skipped.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"seehuhn.de/go/pdfsplit"
	"seehuhn.de/go/pdfsplit/pdf"
	"seehuhn.de/go/pdfsplit/tools/internal/buildinfo"
	"seehuhn.de/go/pdfsplit/tools/internal/profile"
)

const toolName = "pdf-split"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// config holds all command-line flag values.
type config struct {
	outDir     string
	password   string
	quiet      bool
	version    bool
	cpuprofile string
	memprofile string
}

// run executes the tool and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	start := time.Now()

	var cfg config
	flags := flag.NewFlagSet(toolName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&cfg.outDir, "o", "output", "output `directory`")
	flags.StringVar(&cfg.password, "password", "", "password for encrypted files")
	flags.BoolVar(&cfg.quiet, "q", false, "do not show progress")
	flags.BoolVar(&cfg.version, "version", false, "show version information and exit")
	flags.StringVar(&cfg.cpuprofile, "cpuprofile", "", "write cpu profile to `file`")
	flags.StringVar(&cfg.memprofile, "memprofile", "", "write memory profile to `file`")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "%s\n\n", buildinfo.Short(toolName))
		fmt.Fprintf(stderr, "Usage: %s [options] input.pdf output_prefix\n\n", toolName)
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
	}

	err := flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	} else if err != nil {
		return 1
	}

	if cfg.version {
		fmt.Fprintln(stdout, buildinfo.Short(toolName))
		return 0
	}

	if flags.NArg() != 2 {
		flags.Usage()
		return 1
	}

	stop, err := profile.Start(cfg.cpuprofile, cfg.memprofile, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer stop()

	opt := &pdfsplit.Options{
		Logger:       log.New(stderr, "", 0),
		Password:     cfg.password,
		ReadPassword: passwordPrompt(stderr),
	}
	showProgress := !cfg.quiet && isTerminal(stdout)
	if showProgress {
		opt.Progress = func(current, total int) {
			fmt.Fprintf(stdout, "\rpage %d/%d", current, total)
		}
	}

	res, err := pdfsplit.Split(flags.Arg(0), cfg.outDir, flags.Arg(1), opt)
	if showProgress && res != nil && res.PageCount > 0 {
		fmt.Fprintln(stdout)
	}
	if err != nil {
		var authErr *pdf.AuthenticationError
		if errors.As(err, &authErr) {
			fmt.Fprintln(stderr, "Error: wrong or missing password")
		} else {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}

	if failed := res.Failed(); len(failed) > 0 {
		fmt.Fprintf(stderr, "%d of %d pages could not be written\n",
			len(failed), res.PageCount)
	}

	elapsed := time.Since(start)
	fmt.Fprintf(stdout, "Execution time: %.6g seconds\n", elapsed.Seconds())
	return 0
}

// passwordPrompt returns a function which asks for a password on the
// terminal.  If stdin is not a terminal, nil is returned.
func passwordPrompt(stderr io.Writer) func([]byte, int) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(_ []byte, try int) string {
		if try >= 3 {
			return ""
		}
		fmt.Fprint(stderr, "password: ")
		passwd, err := term.ReadPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return ""
		}
		return string(passwd)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
