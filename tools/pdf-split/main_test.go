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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seehuhn.de/go/pdfsplit/internal/testdoc"
	"seehuhn.de/go/pdfsplit/pdf"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	_, err := testdoc.WriteFile(input, testdoc.Simple(2))
	if err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run([]string{"-o", outDir, input, "doc"}, stdout, stderr)
	if code != 0 {
		t.Fatalf("exit status %d, stderr %q", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "Execution time: ") ||
		!strings.HasSuffix(stdout.String(), " seconds\n") {
		t.Errorf("wrong output %q", stdout.String())
	}
	if stderr.Len() > 0 {
		t.Errorf("unexpected error output %q", stderr.String())
	}
	for _, name := range []string{"doc_1.pdf", "doc_2.pdf"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Error(err)
		}
	}
}

func TestRunDefaultOutputDir(t *testing.T) {
	dir := t.TempDir()
	_, err := testdoc.WriteFile(filepath.Join(dir, "in.pdf"), testdoc.Simple(1))
	if err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run([]string{"in.pdf", "p"}, stdout, stderr)
	if code != 0 {
		t.Fatalf("exit status %d, stderr %q", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join("output", "p_1.pdf")); err != nil {
		t.Error(err)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		args []string
		msg  string
	}{
		{"no arguments", nil, "Usage: pdf-split"},
		{"one argument", []string{"in.pdf"}, "Usage: pdf-split"},
		{"three arguments", []string{"a", "b", "c"}, "Usage: pdf-split"},
		{"unknown flag", []string{"-x", "a", "b"}, "-x"},
		{"missing input", []string{"-o", dir, filepath.Join(dir, "missing.pdf"), "p"}, "Error: "},
	}
	for _, test := range cases {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		code := run(test.args, stdout, stderr)
		if code != 1 {
			t.Errorf("%s: exit status %d", test.name, code)
		}
		if !strings.Contains(stderr.String(), test.msg) {
			t.Errorf("%s: error output %q does not contain %q",
				test.name, stderr.String(), test.msg)
		}
		if strings.Contains(stdout.String(), "Execution time") {
			t.Errorf("%s: execution time shown after failure", test.name)
		}
	}
}

func TestRunBrokenPage(t *testing.T) {
	data, info, err := testdoc.Build(pdf.V1_7, testdoc.Simple(2))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	err = os.WriteFile(input, testdoc.BreakObject(data, info.Contents[0]), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run([]string{"-o", dir, input, "p"}, stdout, stderr)
	if code != 0 {
		t.Errorf("exit status %d", code)
	}
	if !strings.Contains(stderr.String(), "Error processing page 1") {
		t.Errorf("missing error message in %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "1 of 2 pages could not be written") {
		t.Errorf("missing summary in %q", stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "Execution time: ") {
		t.Errorf("wrong output %q", stdout.String())
	}
}

func TestRunVersion(t *testing.T) {
	stdout := &bytes.Buffer{}
	code := run([]string{"-version"}, stdout, &bytes.Buffer{})
	if code != 0 {
		t.Errorf("exit status %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "pdf-split") {
		t.Errorf("wrong version output %q", stdout.String())
	}
}
