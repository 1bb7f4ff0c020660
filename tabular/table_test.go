package tabular

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// decodeParquet reads serialized bytes back into an arrow table so tests can
// verify what a consumer of the stored partition would see.
func decodeParquet(t *testing.T, data []byte) arrow.Table {
	t.Helper()

	reader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to open parquet reader: %v", err)
	}
	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		t.Fatalf("failed to create arrow reader: %v", err)
	}
	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		t.Fatalf("failed to read table: %v", err)
	}
	t.Cleanup(func() {
		table.Release()
		reader.Close()
	})
	return table
}

func assertSchema(t *testing.T, table arrow.Table, wantRows int, wantColumns []string) {
	t.Helper()

	if got := int(table.NumRows()); got != wantRows {
		t.Errorf("rows = %d, want %d", got, wantRows)
	}
	if got := int(table.NumCols()); got != len(wantColumns) {
		t.Fatalf("columns = %d, want %d", got, len(wantColumns))
	}
	for i, want := range wantColumns {
		if got := table.Schema().Field(i).Name; got != want {
			t.Errorf("column %d = %q, want %q", i, got, want)
		}
	}
}
