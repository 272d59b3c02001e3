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

// Command capi builds a C shared library which exposes the page splitter
// to other languages:
//
//	go build -buildmode=c-shared -o libpdfsplit.so ./capi
//
// The library exports the following functions:
//
//	typedef void (*ProgressCallback)(int currentPage, int totalPages);
//	void split_pdf(const char* input_filename, const char* output_directory,
//	               const char* output_prefix, ProgressCallback progressCallback);
//	int get_page_count(void);
//
// Errors are reported on stderr.  get_page_count returns the page count of
// the document processed by the most recent call to split_pdf.
package main

/*
typedef void (*ProgressCallback)(int currentPage, int totalPages);

static inline void callProgress(ProgressCallback cb, int current, int total) {
	cb(current, total);
}
*/
import "C"

import "os"

//export split_pdf
func split_pdf(inputFilename, outputDirectory, outputPrefix *C.char, progressCallback C.ProgressCallback) {
	var progress func(current, total int)
	if progressCallback != nil {
		progress = func(current, total int) {
			C.callProgress(progressCallback, C.int(current), C.int(total))
		}
	}
	runSplit(C.GoString(inputFilename), C.GoString(outputDirectory),
		C.GoString(outputPrefix), progress, os.Stderr)
}

//export get_page_count
func get_page_count() C.int {
	return C.int(lastPageCount.Load())
}
