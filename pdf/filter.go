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

package pdf

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FilterInfo describes one entry of the /Filter list of a stream.
type FilterInfo struct {
	Name  Name
	Parms Dict
}

// Filters extracts the information contained in the /Filter and /DecodeParms
// entries of the stream dictionary.
func (x *Stream) Filters(r Getter) ([]*FilterInfo, error) {
	parms, err := Resolve(r, x.Dict["DecodeParms"])
	if err != nil {
		return nil, err
	}
	filter, err := Resolve(r, x.Dict["Filter"])
	if err != nil {
		return nil, err
	}

	var filters []*FilterInfo
	switch f := filter.(type) {
	case nil:
		// pass
	case Name:
		pDict, err := GetDict(r, parms)
		if err != nil {
			return nil, err
		}
		filters = append(filters, &FilterInfo{Name: f, Parms: pDict})
	case Array:
		pa, _ := parms.(Array)
		for i, fi := range f {
			name, err := GetName(r, fi)
			if err != nil {
				return nil, err
			}
			var pDict Dict
			if i < len(pa) {
				pDict, err = GetDict(r, pa[i])
				if err != nil {
					return nil, err
				}
			}
			filters = append(filters, &FilterInfo{Name: name, Parms: pDict})
		}
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("invalid /Filter %s", Format(filter)),
		}
	}
	return filters, nil
}

// Decode reads the stream data and applies all filters.  Only the filters
// needed to read the file structure are supported, i.e. FlateDecode with
// optional PNG predictors.  Content streams and images are never decoded.
func (x *Stream) Decode(r Getter) ([]byte, error) {
	filters, err := x.Filters(r)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(x.R)
	if err != nil {
		return nil, err
	}
	for _, fi := range filters {
		switch fi.Name {
		case "FlateDecode", "Fl":
			data, err = flateDecode(data, fi.Parms)
		case "Crypt":
			// Identity crypt filter; decryption is handled by the reader
		default:
			err = fmt.Errorf("unsupported filter %q", fi.Name)
		}
		if err != nil {
			return nil, &MalformedFileError{Err: err}
		}
	}
	return data, nil
}

func flateDecode(data []byte, parms Dict) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(out) > 0) {
		// truncated streams are common, use what we have
		return nil, err
	}

	param := func(key Name, def int) int {
		if val, ok := parms[key].(Integer); ok {
			return int(val)
		}
		return def
	}
	predictor := param("Predictor", 1)
	switch {
	case predictor == 1:
		return out, nil
	case predictor >= 10 && predictor <= 15:
		colors := param("Colors", 1)
		bpc := param("BitsPerComponent", 8)
		columns := param("Columns", 1)
		if colors < 1 || bpc < 1 || columns < 1 || colors*bpc*columns > 1<<24 {
			return nil, errors.New("invalid predictor parameters")
		}
		return pngUnpredict(out, colors, bpc, columns)
	default:
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
}

// pngUnpredict reverses the PNG row filters.  Each row starts with a byte
// giving the filter type for this row.
func pngUnpredict(data []byte, colors, bpc, columns int) ([]byte, error) {
	rowLen := (colors*bpc*columns + 7) / 8
	bpp := (colors*bpc + 7) / 8

	prev := make([]byte, rowLen)
	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		if len(data) < rowLen+1 {
			break
		}
		tp := data[0]
		row := data[1 : rowLen+1]
		data = data[rowLen+1:]

		cur := make([]byte, rowLen)
		for i, c := range row {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch tp {
			case 0:
				cur[i] = c
			case 1:
				cur[i] = c + left
			case 2:
				cur[i] = c + up
			case 3:
				cur[i] = c + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = c + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("invalid PNG filter type %d", tp)
			}
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
