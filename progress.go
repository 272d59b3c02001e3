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

// Progress is a progress report sent by [ProgressChannel].
type Progress struct {
	Current int
	Total   int
}

// ProgressChannel returns a progress callback for [Options.Progress] which
// sends every report to ch.  The callback blocks until the report has been
// received.
func ProgressChannel(ch chan<- Progress) func(current, total int) {
	return func(current, total int) {
		ch <- Progress{Current: current, Total: total}
	}
}
