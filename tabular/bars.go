package tabular

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// BarColumns is the fixed column order of the daily bar dataset.
var BarColumns = []string{
	"ticker",
	"timestamp",
	"open_price",
	"high_price",
	"low_price",
	"close_price",
	"volume",
	"volume_weighted_average_price",
	"transactions",
}

// Bar is one aggregated daily bar for a single ticker. Timestamp is epoch
// milliseconds. VWAP and Transactions are optional upstream and stay nullable
// through the parquet schema.
type Bar struct {
	Ticker       string
	Timestamp    int64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	VWAP         *float64
	Transactions *int64
}

// Bars is a column-ordered bar table.
type Bars []Bar

func barSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "ticker", Type: arrow.BinaryTypes.String},
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64},
		{Name: "open_price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "high_price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "low_price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "close_price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "volume", Type: arrow.PrimitiveTypes.Float64},
		{Name: "volume_weighted_average_price", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "transactions", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)
}

// Normalize upper-cases tickers in place and returns the receiver.
func (b Bars) Normalize() Bars {
	for i := range b {
		b[i].Ticker = strings.ToUpper(b[i].Ticker)
	}
	return b
}

// ToParquet serializes the table to parquet bytes. An empty table produces a
// schema-only file.
func (b Bars) ToParquet() ([]byte, error) {
	mem := memory.NewGoAllocator()
	schema := barSchema()

	tickerB := array.NewStringBuilder(mem)
	defer tickerB.Release()
	tsB := array.NewInt64Builder(mem)
	defer tsB.Release()
	openB := array.NewFloat64Builder(mem)
	defer openB.Release()
	highB := array.NewFloat64Builder(mem)
	defer highB.Release()
	lowB := array.NewFloat64Builder(mem)
	defer lowB.Release()
	closeB := array.NewFloat64Builder(mem)
	defer closeB.Release()
	volumeB := array.NewFloat64Builder(mem)
	defer volumeB.Release()
	vwapB := array.NewFloat64Builder(mem)
	defer vwapB.Release()
	txB := array.NewInt64Builder(mem)
	defer txB.Release()

	for _, bar := range b {
		tickerB.Append(bar.Ticker)
		tsB.Append(bar.Timestamp)
		openB.Append(bar.Open)
		highB.Append(bar.High)
		lowB.Append(bar.Low)
		closeB.Append(bar.Close)
		volumeB.Append(bar.Volume)
		if bar.VWAP != nil {
			vwapB.Append(*bar.VWAP)
		} else {
			vwapB.AppendNull()
		}
		if bar.Transactions != nil {
			txB.Append(*bar.Transactions)
		} else {
			txB.AppendNull()
		}
	}

	cols := []arrow.Array{
		tickerB.NewArray(), tsB.NewArray(),
		openB.NewArray(), highB.NewArray(), lowB.NewArray(), closeB.NewArray(),
		volumeB.NewArray(), vwapB.NewArray(), txB.NewArray(),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	rec := array.NewRecord(schema, cols, int64(len(b)))
	defer rec.Release()

	return encodeParquet(schema, rec)
}
