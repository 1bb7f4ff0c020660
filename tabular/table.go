// Package tabular defines the column-oriented shapes of each equity dataset
// and their serialization to parquet and CSV.
package tabular

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// encodeParquet serializes a single arrow record batch into an in-memory
// parquet file. A zero-row record still produces a valid file carrying the
// full schema.
func encodeParquet(schema *arrow.Schema, rec arrow.Record) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := pqarrow.NewFileWriter(schema, &buf, nil, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.Write(rec); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write parquet record: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	return buf.Bytes(), nil
}
