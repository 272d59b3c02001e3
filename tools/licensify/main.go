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

// Licensify adds the GPL license header to all Go source files below the
// current directory which do not have it yet.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const header = `// seehuhn.de/go/pdfsplit - split PDF files into single-page documents
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

`

func main() {
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// The go tool ignores directories starting with "_" or ".".
			name := d.Name()
			if path != "." && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		status, err := licensify(path)
		if err != nil {
			return err
		}
		switch status {
		case updated:
			fmt.Println("updating " + path)
		case unexpected:
			fmt.Println("ATTENTION " + path)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
}

type fileStatus int

const (
	unchanged fileStatus = iota
	updated
	unexpected
)

// licensify adds the license header to the named file.  Files which
// already have a different comment at the top are left alone.
func licensify(path string) (fileStatus, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return unchanged, err
	}
	if bytes.HasPrefix(body, []byte(header)) {
		return unchanged, nil
	}
	if !bytes.HasPrefix(body, []byte("package ")) {
		return unexpected, nil
	}

	fd, err := os.Create(path)
	if err != nil {
		return unchanged, err
	}
	_, err = fd.Write([]byte(header))
	if err == nil {
		_, err = fd.Write(body)
	}
	closeErr := fd.Close()
	if err != nil {
		return unchanged, err
	}
	if closeErr != nil {
		return unchanged, closeErr
	}
	return updated, nil
}
