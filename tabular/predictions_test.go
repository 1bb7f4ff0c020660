package tabular

import (
	"strings"
	"testing"
)

func TestPredictionsNormalizeDeduplicates(t *testing.T) {
	preds := Predictions{
		{Ticker: "aapl", Timestamp: 1000, Quantile50: 1},
		{Ticker: "AAPL", Timestamp: 3000, Quantile50: 3},
		{Ticker: "AAPL", Timestamp: 2000, Quantile50: 2},
		{Ticker: "msft", Timestamp: 500, Quantile50: 9},
	}

	got := preds.Normalize()
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].Ticker != "AAPL" || got[0].Timestamp != 3000 {
		t.Errorf("kept %+v, want max-timestamp AAPL row", got[0])
	}
	if got[1].Ticker != "MSFT" || got[1].Timestamp != 500 {
		t.Errorf("kept %+v, want MSFT row", got[1])
	}
}

func TestPredictionsNormalizeTieKeepsLaterRow(t *testing.T) {
	preds := Predictions{
		{Ticker: "AAPL", Timestamp: 1000, Quantile50: 1},
		{Ticker: "AAPL", Timestamp: 1000, Quantile50: 2},
	}
	got := preds.Normalize()
	if len(got) != 1 || got[0].Quantile50 != 2 {
		t.Errorf("got %+v, want later row on equal timestamps", got)
	}
}

func TestPredictionsMaxTimestamp(t *testing.T) {
	if got := (Predictions{}).MaxTimestamp(); got != 0 {
		t.Errorf("empty table max = %v", got)
	}
	preds := Predictions{{Timestamp: 10}, {Timestamp: 30}, {Timestamp: 20}}
	if got := preds.MaxTimestamp(); got != 30 {
		t.Errorf("max = %v, want 30", got)
	}
}

func TestPredictionsParquetRoundTrip(t *testing.T) {
	preds := Predictions{
		{Ticker: "AAPL", Timestamp: 1000, Quantile10: 1, Quantile50: 2, Quantile90: 3},
		{Ticker: "MSFT", Timestamp: 2000, Quantile10: 4, Quantile50: 5, Quantile90: 6},
	}
	data, err := preds.ToParquet()
	if err != nil {
		t.Fatalf("ToParquet: %v", err)
	}
	if !strings.HasPrefix(string(data), "PAR1") || !strings.HasSuffix(string(data), "PAR1") {
		t.Error("output is not framed as a parquet file")
	}
	assertSchema(t, decodeParquet(t, data), 2, PredictionColumns)
}

func TestPredictionsParquetRoundTripEmpty(t *testing.T) {
	data, err := Predictions{}.ToParquet()
	if err != nil {
		t.Fatalf("ToParquet: %v", err)
	}
	assertSchema(t, decodeParquet(t, data), 0, PredictionColumns)
}
