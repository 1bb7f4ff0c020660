package tabular

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// PredictionColumns is the fixed column order of the prediction dataset.
var PredictionColumns = []string{
	"ticker",
	"timestamp",
	"quantile_10",
	"quantile_50",
	"quantile_90",
}

// Prediction is one quantile forecast for a ticker. Timestamp is epoch
// seconds, fractional seconds allowed.
type Prediction struct {
	Ticker     string  `json:"ticker"`
	Timestamp  float64 `json:"timestamp"`
	Quantile10 float64 `json:"quantile_10"`
	Quantile50 float64 `json:"quantile_50"`
	Quantile90 float64 `json:"quantile_90"`
}

// Predictions is a column-ordered prediction table.
type Predictions []Prediction

func predictionSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "ticker", Type: arrow.BinaryTypes.String},
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Float64},
		{Name: "quantile_10", Type: arrow.PrimitiveTypes.Float64},
		{Name: "quantile_50", Type: arrow.PrimitiveTypes.Float64},
		{Name: "quantile_90", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
}

// Normalize upper-cases tickers and deduplicates per ticker, keeping the row
// with the highest timestamp. On equal timestamps the later row wins. The
// relative order of surviving rows follows first appearance of each ticker.
func (p Predictions) Normalize() Predictions {
	latest := make(map[string]int, len(p))
	order := make([]string, 0, len(p))

	for i := range p {
		p[i].Ticker = strings.ToUpper(p[i].Ticker)
		ticker := p[i].Ticker
		if j, seen := latest[ticker]; seen {
			if p[i].Timestamp >= p[j].Timestamp {
				latest[ticker] = i
			}
			continue
		}
		latest[ticker] = i
		order = append(order, ticker)
	}

	out := make(Predictions, 0, len(order))
	for _, ticker := range order {
		out = append(out, p[latest[ticker]])
	}
	return out
}

// MaxTimestamp returns the largest timestamp in the table, or 0 when empty.
func (p Predictions) MaxTimestamp() float64 {
	var max float64
	for _, row := range p {
		if row.Timestamp > max {
			max = row.Timestamp
		}
	}
	return max
}

// ToParquet serializes the table to parquet bytes.
func (p Predictions) ToParquet() ([]byte, error) {
	mem := memory.NewGoAllocator()
	schema := predictionSchema()

	tickerB := array.NewStringBuilder(mem)
	defer tickerB.Release()
	tsB := array.NewFloat64Builder(mem)
	defer tsB.Release()
	q10B := array.NewFloat64Builder(mem)
	defer q10B.Release()
	q50B := array.NewFloat64Builder(mem)
	defer q50B.Release()
	q90B := array.NewFloat64Builder(mem)
	defer q90B.Release()

	for _, row := range p {
		tickerB.Append(row.Ticker)
		tsB.Append(row.Timestamp)
		q10B.Append(row.Quantile10)
		q50B.Append(row.Quantile50)
		q90B.Append(row.Quantile90)
	}

	cols := []arrow.Array{
		tickerB.NewArray(), tsB.NewArray(),
		q10B.NewArray(), q50B.NewArray(), q90B.NewArray(),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rec := array.NewRecord(schema, cols, int64(len(p)))
	defer rec.Release()

	return encodeParquet(schema, rec)
}
