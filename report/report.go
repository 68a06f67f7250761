// Package report turns the fire history of a fault registry into tables and
// writes them as CSV or Parquet.
package report

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/sarchlab/m2fi/fault"
)

// Columns lists the report columns in order.
var Columns = []string{
	"id", "kind", "stage", "target", "inst", "pc", "cycle", "insts",
	"before", "after", "skipped", "reason",
}

// ErrEmptyReport is returned when a loaded report has no columns.
var ErrEmptyReport = errors.New("empty fault report")

// row is the Parquet schema of one record.
type row struct {
	ID      int64  `parquet:"name=id, type=INT64"`
	Kind    string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Stage   string `parquet:"name=stage, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Target  string `parquet:"name=target, type=BYTE_ARRAY, convertedtype=UTF8"`
	Inst    string `parquet:"name=inst, type=BYTE_ARRAY, convertedtype=UTF8"`
	PC      int64  `parquet:"name=pc, type=INT64"`
	Cycle   int64  `parquet:"name=cycle, type=INT64"`
	Insts   int64  `parquet:"name=insts, type=INT64"`
	Before  string `parquet:"name=before, type=BYTE_ARRAY, convertedtype=UTF8"`
	After   string `parquet:"name=after, type=BYTE_ARRAY, convertedtype=UTF8"`
	Skipped bool   `parquet:"name=skipped, type=BOOLEAN"`
	Reason  string `parquet:"name=reason, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func toRow(rec fault.Record) row {
	return row{
		ID:      int64(rec.ID),
		Kind:    rec.Kind.String(),
		Stage:   rec.Stage.String(),
		Target:  rec.Target,
		Inst:    rec.Inst,
		PC:      int64(rec.PC),
		Cycle:   int64(rec.Cycle),
		Insts:   int64(rec.Insts),
		Before:  rec.Before,
		After:   rec.After,
		Skipped: rec.Skipped,
		Reason:  rec.Reason,
	}
}

// Build returns one row per record.
func Build(records []fault.Record) *dataframe.DataFrame {
	n := len(records)
	ids := make([]interface{}, n)
	kinds := make([]interface{}, n)
	stages := make([]interface{}, n)
	targets := make([]interface{}, n)
	instNames := make([]interface{}, n)
	pcs := make([]interface{}, n)
	cycles := make([]interface{}, n)
	counts := make([]interface{}, n)
	before := make([]interface{}, n)
	after := make([]interface{}, n)
	skipped := make([]interface{}, n)
	reasons := make([]interface{}, n)

	for i, rec := range records {
		r := toRow(rec)
		ids[i], kinds[i], stages[i] = r.ID, r.Kind, r.Stage
		targets[i], instNames[i] = r.Target, r.Inst
		pcs[i], cycles[i], counts[i] = r.PC, r.Cycle, r.Insts
		before[i], after[i] = r.Before, r.After
		skipped[i], reasons[i] = r.Skipped, r.Reason
	}

	si := &dataframe.SeriesInit{Capacity: n}

	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64("id", si, ids...),
		dataframe.NewSeriesString("kind", si, kinds...),
		dataframe.NewSeriesString("stage", si, stages...),
		dataframe.NewSeriesString("target", si, targets...),
		dataframe.NewSeriesString("inst", si, instNames...),
		dataframe.NewSeriesInt64("pc", si, pcs...),
		dataframe.NewSeriesInt64("cycle", si, cycles...),
		dataframe.NewSeriesInt64("insts", si, counts...),
		dataframe.NewSeriesString("before", si, before...),
		dataframe.NewSeriesString("after", si, after...),
		dataframe.NewSeriesGeneric("skipped", false, si, skipped...),
		dataframe.NewSeriesString("reason", si, reasons...),
	)
}

// WriteCSV writes the records as CSV with a header row.
func WriteCSV(ctx context.Context, w io.Writer, records []fault.Record) error {
	if err := exports.ExportToCSV(ctx, w, Build(records)); err != nil {
		return errors.Wrap(err, "failed to export fault report")
	}
	return nil
}

// WriteParquet writes the records to a Snappy-compressed Parquet file.
func WriteParquet(path string, records []fault.Record) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return errors.Wrap(err, "failed to create fault report")
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to close fault report")
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(row), 1)
	if err != nil {
		return errors.Wrap(err, "failed to create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		if err := pw.Write(toRow(rec)); err != nil {
			return errors.Wrapf(err, "failed to write record of fault %d", rec.ID)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "failed to finish fault report")
	}

	return nil
}

// Save writes the records to path, as Parquet for .parquet files and CSV
// otherwise.
func Save(ctx context.Context, path string, records []fault.Record) error {
	if isParquet(path) {
		return WriteParquet(path, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create fault report")
	}

	if err := WriteCSV(ctx, f, records); err != nil {
		_ = f.Close()
		return err
	}

	return errors.Wrap(f.Close(), "failed to close fault report")
}

// Load reads a report written by Save.
func Load(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	var (
		df  *dataframe.DataFrame
		err error
	)

	if isParquet(path) {
		fr, ferr := local.NewLocalFileReader(path)
		if ferr != nil {
			return nil, errors.Wrap(ferr, "failed to open fault report")
		}
		defer func() { _ = fr.Close() }()

		df, err = imports.LoadFromParquet(ctx, fr)
	} else {
		f, ferr := os.Open(path)
		if ferr != nil {
			return nil, errors.Wrap(ferr, "failed to open fault report")
		}
		defer func() { _ = f.Close() }()

		df, err = imports.LoadFromCSV(ctx, f, imports.CSVLoadOptions{InferDataTypes: true})
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load fault report")
	}

	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyReport
	}

	return df, nil
}

func isParquet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}
