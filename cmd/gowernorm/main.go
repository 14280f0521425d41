// gowernorm applies Gower rescaling to a square covariance or kinship matrix
// stored as delimited text, writing the rescaled matrix to stdout or to a
// file. Rescaled matrices have an average effective variance of 1, which is
// the conventional normalization before variance-component modeling.
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/mat"

	"github.com/statgen/lrtcalib"
	"github.com/statgen/lrtcalib/gower"
)

func main() {
	var input, output string

	flag.StringVar(&input, "input", "", "Square numeric matrix (CSV or TSV, optionally compressed)")
	flag.StringVar(&output, "output", "", "Destination file. If empty, writes to stdout.")
	flag.Parse()

	if input == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(input, output); err != nil {
		log.Fatalln(pfx.Err(err))
	}
}

func run(input, output string) error {
	rc, err := lrtcalib.OpenStatistics(input)
	if err != nil {
		return err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	delimiter := lrtcalib.SniffDelimiter(bytes.NewReader(raw))
	rows, err := lrtcalib.ReadMatrix(bytes.NewReader(raw), delimiter)
	if err != nil {
		return err
	}

	k := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		k.SetRow(i, row)
	}

	normalized, err := gower.Normalize(k)
	if err != nil {
		return err
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return writeMatrix(out, normalized, delimiter)
}

func writeMatrix(w io.Writer, m *mat.Dense, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	r, c := m.Dims()
	record := make([]string, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
