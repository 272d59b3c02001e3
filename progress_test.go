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
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/pdfsplit/internal/testdoc"
)

func TestProgressChannel(t *testing.T) {
	input, _ := writeTestDoc(t, testdoc.Simple(4))

	outDir := t.TempDir()

	ch := make(chan Progress)
	done := make(chan error)
	go func() {
		_, err := Split(input, outDir, "p", &Options{
			Progress: ProgressChannel(ch),
		})
		close(ch)
		done <- err
	}()

	var got []Progress
	for p := range ch {
		got = append(got, p)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	expected := []Progress{{1, 4}, {2, 4}, {3, 4}, {4, 4}}
	if d := cmp.Diff(expected, got); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
}
