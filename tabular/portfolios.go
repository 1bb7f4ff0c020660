package tabular

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// PortfolioColumns is the fixed column order of the portfolio dataset. Older
// partitions predate the action column; readers fall back and fill
// ActionUnspecified when it is absent.
var PortfolioColumns = []string{
	"ticker",
	"timestamp",
	"side",
	"dollar_amount",
	"action",
}

// ActionUnspecified fills the action column for rows written before the
// column existed, and for payloads that omit it.
const ActionUnspecified = "UNSPECIFIED"

// Position is one portfolio row. Timestamp is epoch seconds.
type Position struct {
	Ticker       string  `json:"ticker"`
	Timestamp    float64 `json:"timestamp"`
	Side         string  `json:"side"`
	DollarAmount float64 `json:"dollar_amount"`
	Action       string  `json:"action"`
}

// Positions is a column-ordered portfolio table.
type Positions []Position

func portfolioSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "ticker", Type: arrow.BinaryTypes.String},
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Float64},
		{Name: "side", Type: arrow.BinaryTypes.String},
		{Name: "dollar_amount", Type: arrow.PrimitiveTypes.Float64},
		{Name: "action", Type: arrow.BinaryTypes.String},
	}, nil)
}

// Normalize upper-cases tickers and categorical text, and fills empty actions
// with ActionUnspecified.
func (p Positions) Normalize() Positions {
	for i := range p {
		p[i].Ticker = strings.ToUpper(p[i].Ticker)
		p[i].Side = strings.ToUpper(p[i].Side)
		p[i].Action = strings.ToUpper(p[i].Action)
		if p[i].Action == "" {
			p[i].Action = ActionUnspecified
		}
	}
	return p
}

// ToParquet serializes the table to parquet bytes. An empty table still
// carries all five columns.
func (p Positions) ToParquet() ([]byte, error) {
	mem := memory.NewGoAllocator()
	schema := portfolioSchema()

	tickerB := array.NewStringBuilder(mem)
	defer tickerB.Release()
	tsB := array.NewFloat64Builder(mem)
	defer tsB.Release()
	sideB := array.NewStringBuilder(mem)
	defer sideB.Release()
	amountB := array.NewFloat64Builder(mem)
	defer amountB.Release()
	actionB := array.NewStringBuilder(mem)
	defer actionB.Release()

	for _, row := range p {
		tickerB.Append(row.Ticker)
		tsB.Append(row.Timestamp)
		sideB.Append(row.Side)
		amountB.Append(row.DollarAmount)
		actionB.Append(row.Action)
	}

	cols := []arrow.Array{
		tickerB.NewArray(), tsB.NewArray(), sideB.NewArray(),
		amountB.NewArray(), actionB.NewArray(),
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

// MaxTimestamp returns the largest timestamp in the table, or 0 when empty.
func (p Positions) MaxTimestamp() float64 {
	var max float64
	for _, row := range p {
		if row.Timestamp > max {
			max = row.Timestamp
		}
	}
	return max
}
