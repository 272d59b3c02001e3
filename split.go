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

package pdfsplit

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"seehuhn.de/go/pdfsplit/pdf"
)

// Options controls the behaviour of [Split].  The zero value, and a nil
// *Options, give the default behaviour.
type Options struct {
	// Progress, if set, is called after each page has been processed,
	// whether or not the page could be written.  current counts from 1 to
	// total.
	Progress func(current, total int)

	// Logger, if set, receives a message for every page which could not be
	// written.
	Logger *log.Logger

	// Password is tried in addition to the empty password for encrypted
	// documents.
	Password string

	// ReadPassword, if set, is asked for further passwords if neither the
	// empty password nor Password unlock the document.  See
	// [pdf.ReaderOptions] for details.
	ReadPassword func(ID []byte, try int) string
}

// Result describes the outcome of [Split].
type Result struct {
	// PageCount is the number of pages in the input document.
	PageCount int

	// Pages contains one entry per page, in page order.
	Pages []PageResult
}

// PageResult describes the outcome for a single page.
type PageResult struct {
	// Number is the one-based page number.
	Number int

	// Path is the name of the output file.  This is empty if the page
	// could not be written.
	Path string

	// Err is the reason why the page could not be written.
	Err error
}

// Written returns the number of pages successfully written.
func (res *Result) Written() int {
	n := 0
	for _, p := range res.Pages {
		if p.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the pages which could not be written.
func (res *Result) Failed() []PageResult {
	var failed []PageResult
	for _, p := range res.Pages {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}

// OutputName returns the file name used for the page with the given
// one-based page number.
func OutputName(prefix string, pageNumber int) string {
	return fmt.Sprintf("%s_%d.pdf", prefix, pageNumber)
}

// Split writes every page of the PDF document input into a file of its own.
// The files are placed in outDir, which is created if needed, and are named
// "<prefix>_<n>.pdf" where n is the one-based page number.
//
// If the output directory cannot be created or the document cannot be
// opened, an error is returned and no files are written.  Errors for
// individual pages do not stop the process; they are logged and recorded in
// the returned Result.
func Split(input, outDir, prefix string, opt *Options) (*Result, error) {
	if opt == nil {
		opt = &Options{}
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	err := os.MkdirAll(outDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	doc, err := OpenDocument(input, opt.readerOptions())
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	total := doc.NumPages()
	res := &Result{
		PageCount: total,
		Pages:     make([]PageResult, total),
	}
	for i := range total {
		pr := PageResult{Number: i + 1}
		path := filepath.Join(outDir, OutputName(prefix, i+1))
		err := ExtractPage(doc, i, path)
		if err != nil {
			logger.Printf("Error processing page %d: %v", i+1, err)
			pr.Err = err
		} else {
			pr.Path = path
		}
		res.Pages[i] = pr

		if opt.Progress != nil {
			opt.Progress(i+1, total)
		}
	}

	return res, nil
}

func (opt *Options) readerOptions() *pdf.ReaderOptions {
	if opt.Password == "" && opt.ReadPassword == nil {
		return nil
	}
	return &pdf.ReaderOptions{
		ReadPassword: func(ID []byte, try int) string {
			if opt.Password != "" {
				if try == 0 {
					return opt.Password
				}
				try--
			}
			if opt.ReadPassword == nil {
				return ""
			}
			return opt.ReadPassword(ID, try)
		},
	}
}
