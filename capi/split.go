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

package main

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"seehuhn.de/go/pdfsplit"
)

// lastPageCount holds the page count of the most recently processed
// document.  Concurrent calls overwrite each other.
var lastPageCount atomic.Int64

func main() {}

// runSplit splits the document and records its page count.  All errors are
// written to errOut.  The page count is set to 0 if the document cannot be
// opened.
func runSplit(input, outDir, prefix string, progress func(current, total int), errOut io.Writer) {
	opt := &pdfsplit.Options{
		Progress: progress,
		Logger:   log.New(errOut, "", 0),
	}
	res, err := pdfsplit.Split(input, outDir, prefix, opt)
	if err != nil {
		lastPageCount.Store(0)
		fmt.Fprintln(errOut, "Error:", err)
		return
	}
	lastPageCount.Store(int64(res.PageCount))
}
