package store

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestResolveDateRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	t.Run("both ends given", func(t *testing.T) {
		start := now.Add(-48 * time.Hour)
		s, e, err := ResolveDateRange(timePtr(start), timePtr(now), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !s.Equal(start) || !e.Equal(now) {
			t.Errorf("got [%v, %v]", s, e)
		}
	})

	t.Run("start only runs to now", func(t *testing.T) {
		start := now.Add(-time.Hour)
		s, e, err := ResolveDateRange(timePtr(start), nil, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !s.Equal(start) || !e.Equal(now) {
			t.Errorf("got [%v, %v], want end = now", s, e)
		}
	})

	t.Run("end only reaches back one window", func(t *testing.T) {
		end := now.Add(-time.Hour)
		s, e, err := ResolveDateRange(nil, timePtr(end), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !e.Equal(end) || !s.Equal(end.Add(-week)) {
			t.Errorf("got [%v, %v]", s, e)
		}
	})

	t.Run("neither end means trailing window", func(t *testing.T) {
		s, e, err := ResolveDateRange(nil, nil, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !e.Equal(now) || !s.Equal(now.Add(-week)) {
			t.Errorf("got [%v, %v]", s, e)
		}
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		_, _, err := ResolveDateRange(timePtr(now), timePtr(now.Add(-time.Hour)), now)
		if err == nil {
			t.Fatal("expected error for start after end")
		}
	})
}

func TestBuildBarsQuery(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	query := buildBarsQuery("data-bucket", []string{"aapl", "MSFT"}, start, end)

	for _, want := range []string{
		"read_parquet('s3://data-bucket/equity/bars/daily/**/*.parquet', hive_partitioning = true)",
		"(year::int * 10000 + month::int * 100 + day::int) BETWEEN 20240301 AND 20240307",
		"ticker IN ('AAPL', 'MSFT')",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query missing %q:\n%s", want, query)
		}
	}
	if !strings.HasSuffix(query, "ORDER BY timestamp, ticker") {
		t.Errorf("results must be ordered by timestamp then ticker:\n%s", query)
	}
}

func TestBuildPredictionsQuery(t *testing.T) {
	// Two points on the same day must collapse to one partition path.
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	other := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	points := []PredictionPoint{
		{Ticker: "aapl", Timestamp: float64(day.Unix())},
		{Ticker: "MSFT", Timestamp: float64(day.Unix()) + 60},
		{Ticker: "GOOG", Timestamp: float64(other.Unix())},
		{Ticker: "AAPL", Timestamp: float64(other.Unix())},
	}
	query := buildPredictionsQuery("b", points)

	if got := strings.Count(query, "year=2024/month=03/day=07"); got != 1 {
		t.Errorf("expected day=07 partition once, got %d:\n%s", got, query)
	}
	if !strings.Contains(query, "year=2024/month=03/day=08") {
		t.Errorf("missing day=08 partition:\n%s", query)
	}
	if !strings.Contains(query, "ticker IN ('AAPL', 'MSFT', 'GOOG')") {
		t.Errorf("union must be filtered by the full upper-cased ticker set:\n%s", query)
	}
	if got := strings.Count(query, "'AAPL'"); got != 1 {
		t.Errorf("repeated tickers must collapse, got %d occurrences:\n%s", got, query)
	}
	// Timestamps select partitions only. A row predicate on timestamp would
	// drop stored rows whose timestamp was moved by dedup or float drift.
	if strings.Contains(query, "timestamp = ") {
		t.Errorf("query must not filter rows by timestamp:\n%s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY timestamp, ticker") {
		t.Errorf("results must be ordered by timestamp then ticker:\n%s", query)
	}
}

func TestBuildPortfolioQueries(t *testing.T) {
	day := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	exact := buildPortfolioDayQuery("b", day, true)
	if !strings.Contains(exact, "'s3://b/equity/portfolios/daily/year=2024/month=03/day=07/data.parquet'") {
		t.Errorf("exact-day query should address the partition directly:\n%s", exact)
	}
	if !strings.Contains(exact, "action") {
		t.Errorf("expected action column:\n%s", exact)
	}

	legacy := buildPortfolioDayQuery("b", day, false)
	if strings.Contains(legacy, "action") {
		t.Errorf("legacy query must not reference action:\n%s", legacy)
	}

	latest := buildPortfolioLatestQuery("b", true)
	for _, want := range []string{
		"WITH latest AS (SELECT MAX((year::int * 10000 + month::int * 100 + day::int)) AS date_int",
		"= latest.date_int",
	} {
		if !strings.Contains(latest, want) {
			t.Errorf("latest query missing %q:\n%s", want, latest)
		}
	}
	for _, query := range []string{exact, latest} {
		if !strings.HasSuffix(query, "ORDER BY timestamp, ticker") {
			t.Errorf("results must be ordered by timestamp then ticker:\n%s", query)
		}
	}
}

func TestClassifyQueryErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"no files", errors.New("IO Error: No files found that match the pattern"), true},
		{"could not find", errors.New("Could not find file s3://b/x"), true},
		{"does not exist", errors.New("file does not exist"), true},
		{"invalid input", errors.New("Invalid Input Error: glob"), true},
		{"other", errors.New("out of memory"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyQueryErr(tt.err)
			if (got == ErrNoPartitions) != tt.notFound {
				t.Errorf("classifyQueryErr(%v) = %v", tt.err, got)
			}
		})
	}
	if classifyQueryErr(nil) != nil {
		t.Error("nil must stay nil")
	}
}

func TestIsMissingColumn(t *testing.T) {
	err := errors.New(`Binder Error: Referenced column "action" not found in FROM clause`)
	if !isMissingColumn(err, "action") {
		t.Error("expected missing-column classification")
	}
	if isMissingColumn(errors.New("action failed"), "action") {
		t.Error("unrelated error misclassified")
	}
	if isMissingColumn(nil, "action") {
		t.Error("nil misclassified")
	}
}
