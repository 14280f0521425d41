package lrtcalib

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadStatistics(t *testing.T) {
	for _, v := range []struct {
		name      string
		content   string
		delimiter rune
		column    string
		want      []float64
		wantErr   bool
	}{
		{"headerless single column", "1.5\n0\n2.25\n", ',', "", []float64{1.5, 0, 2.25}, false},
		{"single column with header", "lrt\n1.5\n0\n", ',', "", []float64{1.5, 0}, false},
		{"named column", "snp,lrt\nrs1,3.5\nrs2,0\n", ',', "lrt", []float64{3.5, 0}, false},
		{"named column tab delimited", "snp\tlrt\nrs1\t3.5\n", '\t', "lrt", []float64{3.5}, false},
		{"missing column", "snp,lrt\nrs1,3.5\n", ',', "pval", nil, true},
		{"non-numeric value", "lrt\n1.5\nxyz\n", ',', "lrt", nil, true},
		{"empty", "", ',', "", nil, true},
		{"header only", "lrt\n", ',', "lrt", nil, true},
	} {
		got, err := ReadStatistics(strings.NewReader(v.content), v.delimiter, v.column)
		if v.wantErr {
			if err == nil {
				t.Errorf("%s: expected an error, got %v", v.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", v.name, err)
			continue
		}

		if len(got) != len(v.want) {
			t.Errorf("%s: got %v, want %v", v.name, got, v.want)
			continue
		}
		for i := range got {
			if got[i] != v.want[i] {
				t.Errorf("%s: got %v, want %v", v.name, got, v.want)
				break
			}
		}
	}
}

func TestReadMatrix(t *testing.T) {
	got, err := ReadMatrix(strings.NewReader("1,0.5\n0.5,1\n"), ',')
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0][1] != 0.5 || got[1][1] != 1 {
		t.Errorf("unexpected matrix: %v", got)
	}

	if _, err := ReadMatrix(strings.NewReader("1,0.5\n0.5\n"), ','); err == nil {
		t.Error("expected an error for ragged rows")
	}

	if _, err := ReadMatrix(strings.NewReader("1,a\n2,3\n"), ','); err == nil {
		t.Error("expected an error for non-numeric fields")
	}
}

func TestSniffDelimiter(t *testing.T) {
	for _, v := range []struct {
		content string
		want    rune
	}{
		{"a\tb\tc\n1\t2\t3\n4\t5\t6\n", '\t'},
		{"a,b,c\n1,2,3\n4,5,6\n", ','},
		{"a;b;c\n1;2;3\n4;5;6\n", ';'},
		// Single-column content gives the detector nothing to rank; the
		// comma fallback applies.
		{"lrt\n1.5\n2.25\n", ','},
		{"", ','},
	} {
		if got := SniffDelimiter(strings.NewReader(v.content)); got != v.want {
			t.Errorf("content %q: sniffed %q, want %q", v.content, got, v.want)
		}
	}
}

func TestOpenStatisticsPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	if err := os.WriteFile(path, []byte("lrt\n1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := OpenStatistics(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	stats, err := ReadStatistics(rc, ',', "lrt")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0] != 1.5 {
		t.Errorf("got %v, want [1.5]", stats)
	}
}

func TestOpenStatisticsGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte("lrt\n1.5\n2.25\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "stats.csv.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := OpenStatistics(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	stats, err := ReadStatistics(rc, ',', "lrt")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats[0] != 1.5 || stats[1] != 2.25 {
		t.Errorf("got %v, want [1.5 2.25]", stats)
	}
}
