// Package lrtcalib holds the file-handling helpers shared by the lrtcalib
// command line tools: opening possibly-compressed statistic files, sniffing
// their delimiter, and parsing numeric columns into float slices.
package lrtcalib

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/csimplestring/go-csv/detector"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// Magic byte signatures from https://stackoverflow.com/a/19127748/199475
var magicBytes = map[string][]byte{
	"gzip":  {0x1f, 0x8b, 0x08},
	"zip":   {0x50, 0x4b, 0x03, 0x04},
	"xz":    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	"zlib":  {0x1f, 0x9d},
	"bzip2": {0x42, 0x5a, 0x68},
}

// OpenStatistics opens the named file and returns a reader over its
// uncompressed contents. Compression is detected from the file's leading
// magic bytes rather than its name; gzip, zip, xz, zlib, and bzip2 are
// recognized, and anything else is passed through unchanged. Closing the
// returned reader closes the underlying file.
func OpenStatistics(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 6)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	decompressed, err := decompressor(f, header[:n])
	if err != nil {
		f.Close()
		return nil, err
	}

	return &fileReader{Reader: decompressed, file: f}, nil
}

func decompressor(f *os.File, header []byte) (io.Reader, error) {
	switch compressionType(header) {
	case "gzip":
		return gzip.NewReader(f)
	case "zip":
		return zipstream.NewReader(f), nil
	case "xz":
		return xz.NewReader(f, 0)
	case "zlib":
		return zlib.NewReader(f)
	case "bzip2":
		return bzip2.NewReader(f), nil
	}

	return f, nil
}

func compressionType(header []byte) string {
	for name, sig := range magicBytes {
		if len(header) >= len(sig) && bytes.Equal(header[:len(sig)], sig) {
			return name
		}
	}

	return ""
}

// fileReader reads decompressed content while keeping hold of the underlying
// file so that Close releases it, whether or not the decompressor itself is
// closeable.
type fileReader struct {
	io.Reader
	file *os.File
}

func (fr *fileReader) Close() error {
	if c, ok := fr.Reader.(io.Closer); ok && c != fr.file {
		c.Close()
	}

	return fr.file.Close()
}

// SniffDelimiter returns the most likely delimiter rune for the CSV-like
// content in r. The detector ranks candidates by how consistently they split
// rows; a single-column or empty file yields no candidate, in which case a
// comma is assumed.
func SniffDelimiter(r io.Reader) rune {
	candidates := detector.New().DetectDelimiter(r, '"')
	if len(candidates) == 0 {
		return ','
	}

	return []rune(candidates[0])[0]
}

// ReadStatistics parses one numeric column from delimited content. If column
// is nonempty, the first row is treated as a header and the named column is
// extracted. If column is empty, the first column is used, and a leading
// non-numeric row is skipped as a header.
func ReadStatistics(r io.Reader, delimiter rune, column string) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows found")
	}

	colIdx := 0
	if column != "" {
		colIdx = -1
		for i, name := range rows[0] {
			if name == column {
				colIdx = i
				break
			}
		}
		if colIdx < 0 {
			return nil, fmt.Errorf("column %q not found in header %v", column, rows[0])
		}
		rows = rows[1:]
	} else if _, err := strconv.ParseFloat(rows[0][0], 64); err != nil {
		// Headerless mode, but the first row doesn't parse: assume it is
		// a header after all.
		rows = rows[1:]
	}

	out := make([]float64, 0, len(rows))
	for i, row := range rows {
		if colIdx >= len(row) {
			return nil, fmt.Errorf("row %d has %d fields, need at least %d", i+1, len(row), colIdx+1)
		}

		v, err := strconv.ParseFloat(row[colIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		out = append(out, v)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no numeric rows found")
	}

	return out, nil
}

// ReadMatrix parses a full numeric matrix from delimited content. Every row
// must have the same number of fields and every field must parse as a float.
func ReadMatrix(r io.Reader, delimiter rune) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows found")
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("row %d has %d fields, want %d", i+1, len(row), len(rows[0]))
		}

		out[i] = make([]float64, len(row))
		for j, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, field %d: %w", i+1, j+1, err)
			}
			out[i][j] = v
		}
	}

	return out, nil
}
