// chi2fit fits a two-component chi-square mixture to a file of null
// likelihood-ratio test statistics and prints the fitted mixing proportion,
// scale, and degrees of freedom. Optionally it also writes the calibrated
// p-value of every input statistic to a CSV file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"

	"github.com/statgen/lrtcalib"
	"github.com/statgen/lrtcalib/chi2mixture"
)

type pvalueRow struct {
	Statistic float64 `csv:"statistic"`
	PValue    float64 `csv:"p_value"`
}

func main() {
	var input, column, pvaluesOut string
	var scaleMin, scaleMax, dofMin, dofMax, qmax, tol float64
	var intervals int

	defaults := chi2mixture.DefaultConfig()

	flag.StringVar(&input, "input", "", "File of null test statistics (CSV or TSV, optionally compressed)")
	flag.StringVar(&column, "column", "", "Column holding the statistics. If empty, the first column is used.")
	flag.StringVar(&pvaluesOut, "pvalues", "", "If set, write per-statistic p-values to this CSV file")
	flag.Float64Var(&scaleMin, "scale-min", defaults.ScaleMin, "Lower bound of the scale grid")
	flag.Float64Var(&scaleMax, "scale-max", defaults.ScaleMax, "Upper bound of the scale grid")
	flag.Float64Var(&dofMin, "dof-min", defaults.DofMin, "Lower bound of the degrees-of-freedom grid")
	flag.Float64Var(&dofMax, "dof-max", defaults.DofMax, "Upper bound of the degrees-of-freedom grid")
	flag.IntVar(&intervals, "intervals", defaults.NIntervals, "Grid points per axis")
	flag.Float64Var(&qmax, "qmax", defaults.QMax, "Fraction of the nonzero statistics used for fitting")
	flag.Float64Var(&tol, "tol", defaults.Tol, "Statistics at or below this value count as zero")
	flag.Parse()

	if input == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := chi2mixture.NewConfig(scaleMin, scaleMax, dofMin, dofMax, intervals, qmax, tol)
	if err != nil {
		log.Fatalln(pfx.Err(err))
	}

	if err := run(input, column, pvaluesOut, cfg); err != nil {
		log.Fatalln(pfx.Err(err))
	}
}

func run(input, column, pvaluesOut string, cfg chi2mixture.Config) error {
	rc, err := lrtcalib.OpenStatistics(input)
	if err != nil {
		return err
	}
	defer rc.Close()

	// Read the whole file once so the delimiter can be sniffed before
	// parsing. Statistic files are one float per variant and fit in memory.
	raw, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	delimiter := lrtcalib.SniffDelimiter(bytes.NewReader(raw))
	statistics, err := lrtcalib.ReadStatistics(bytes.NewReader(raw), delimiter, column)
	if err != nil {
		return err
	}

	fit, err := chi2mixture.Estimate(statistics, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("n\t%d\n", len(statistics))
	fmt.Printf("mixture\t%g\n", fit.Mixture)
	fmt.Printf("scale\t%g\n", fit.Scale)
	fmt.Printf("dof\t%g\n", fit.Dof)
	fmt.Printf("mse\t%g\n", fit.MSE)

	if err := printTailSummary(statistics, cfg.Tol); err != nil {
		return err
	}

	if pvaluesOut == "" {
		return nil
	}

	return writePValues(pvaluesOut, statistics, fit)
}

// printTailSummary describes the statistics that exceeded the zero tolerance,
// which is the part of the sample the scale and dof were fit to.
func printTailSummary(statistics []float64, tol float64) error {
	tail := make([]float64, 0, len(statistics))
	for _, x := range statistics {
		if x > tol {
			tail = append(tail, x)
		}
	}

	mean, err := stats.Mean(tail)
	if err != nil {
		return err
	}
	median, err := stats.Median(tail)
	if err != nil {
		return err
	}
	max, err := stats.Max(tail)
	if err != nil {
		return err
	}

	fmt.Printf("tail_n\t%d\n", len(tail))
	fmt.Printf("tail_mean\t%g\n", mean)
	fmt.Printf("tail_median\t%g\n", median)
	fmt.Printf("tail_max\t%g\n", max)

	return nil
}

func writePValues(path string, statistics []float64, fit chi2mixture.Fit) error {
	pvalues := chi2mixture.Survival(statistics, fit)

	rows := make([]pvalueRow, len(statistics))
	for i := range statistics {
		rows[i] = pvalueRow{Statistic: statistics[i], PValue: pvalues[i]}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gocsv.MarshalFile(&rows, f)
}
