package store

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// dateExpr recombines the hive partition columns into a DateInt value.
const dateExpr = "(year::int * 10000 + month::int * 100 + day::int)"

// defaultQueryWindow is the lookback applied when a date range is left open.
const defaultQueryWindow = 7 * 24 * time.Hour

// selectSpec is the intermediate form every partition query is built as.
// render is the single place query text is assembled, so quoting and
// predicate composition stay auditable.
type selectSpec struct {
	with    string
	columns []string
	source  string
	where   []string
	orderBy string
}

func (s selectSpec) render() string {
	var b strings.Builder
	if s.with != "" {
		b.WriteString("WITH ")
		b.WriteString(s.with)
		b.WriteString(" ")
	}
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(s.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(s.source)
	if len(s.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(s.where, " AND "))
	}
	if s.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(s.orderBy)
	}
	return b.String()
}

// globSource scans every daily partition of a kind with hive pruning enabled.
func globSource(bucket string, kind Kind) string {
	return fmt.Sprintf("read_parquet('%s', hive_partitioning = true)", PartitionGlob(bucket, kind))
}

// pathsSource scans an explicit set of partition objects. Used for point
// lookups where the partitions are known, skipping the glob listing.
func pathsSource(bucket string, keys []string) string {
	paths := make([]string, len(keys))
	for i, key := range keys {
		paths[i] = fmt.Sprintf("'s3://%s/%s'", bucket, key)
	}
	return fmt.Sprintf("read_parquet([%s], hive_partitioning = true)", strings.Join(paths, ", "))
}

// ResolveDateRange fills in open ends of a bar query window: start-only runs
// to now, end-only reaches back one window, neither means the trailing window
// ending now. An inverted range is a validation error.
func ResolveDateRange(start, end *time.Time, now time.Time) (time.Time, time.Time, error) {
	var s, e time.Time
	switch {
	case start != nil && end != nil:
		s, e = *start, *end
	case start != nil:
		s, e = *start, now
	case end != nil:
		s, e = end.Add(-defaultQueryWindow), *end
	default:
		s, e = now.Add(-defaultQueryWindow), now
	}
	if s.After(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end %s", s.UTC().Format(time.RFC3339), e.UTC().Format(time.RFC3339))
	}
	return s, e, nil
}

// buildBarsQuery selects bar rows for validated tickers over a resolved date
// range. Tickers must already have passed ValidTicker.
func buildBarsQuery(bucket string, tickers []string, start, end time.Time) string {
	quoted := make([]string, len(tickers))
	for i, t := range tickers {
		quoted[i] = QuoteLiteral(strings.ToUpper(t))
	}
	spec := selectSpec{
		columns: []string{
			"ticker", "timestamp", "open_price", "high_price", "low_price",
			"close_price", "volume", "volume_weighted_average_price", "transactions",
		},
		source: globSource(bucket, KindBars),
		where: []string{
			fmt.Sprintf("%s BETWEEN %d AND %d", dateExpr, DateInt(start), DateInt(end)),
			fmt.Sprintf("ticker IN (%s)", strings.Join(quoted, ", ")),
		},
		orderBy: "timestamp, ticker",
	}
	return spec.render()
}

// PredictionPoint addresses the predictions stored for one ticker around one
// partition day.
type PredictionPoint struct {
	Ticker    string  `json:"ticker"`
	Timestamp float64 `json:"timestamp"`
}

// buildPredictionsQuery selects the stored rows for the requested points: the
// partitions for the requested days are addressed directly instead of
// globbing the whole dataset, and the union is filtered by the full ticker
// set. Timestamps only pick partitions; they are not row predicates, so a
// ticker whose stored row carries a different timestamp (dedup moved it,
// float drift) still comes back.
func buildPredictionsQuery(bucket string, points []PredictionPoint) string {
	seenKey := make(map[string]bool)
	seenTicker := make(map[string]bool)
	var keys []string
	var tickers []string
	for _, pt := range points {
		day := time.Unix(int64(math.Floor(pt.Timestamp)), 0).UTC()
		key := ObjectKey(KindPredictions, day)
		if !seenKey[key] {
			seenKey[key] = true
			keys = append(keys, key)
		}
		ticker := strings.ToUpper(pt.Ticker)
		if !seenTicker[ticker] {
			seenTicker[ticker] = true
			tickers = append(tickers, QuoteLiteral(ticker))
		}
	}
	spec := selectSpec{
		columns: []string{"ticker", "timestamp", "quantile_10", "quantile_50", "quantile_90"},
		source:  pathsSource(bucket, keys),
		where:   []string{fmt.Sprintf("ticker IN (%s)", strings.Join(tickers, ", "))},
		orderBy: "timestamp, ticker",
	}
	return spec.render()
}

var portfolioColumnsWithAction = []string{"ticker", "timestamp", "side", "dollar_amount", "action"}
var portfolioColumnsLegacy = []string{"ticker", "timestamp", "side", "dollar_amount"}

// buildPortfolioDayQuery selects the portfolio stored in the partition for
// one exact day.
func buildPortfolioDayQuery(bucket string, day time.Time, withAction bool) string {
	columns := portfolioColumnsWithAction
	if !withAction {
		columns = portfolioColumnsLegacy
	}
	spec := selectSpec{
		columns: columns,
		source:  pathsSource(bucket, []string{ObjectKey(KindPortfolios, day)}),
		orderBy: "timestamp, ticker",
	}
	return spec.render()
}

// buildPortfolioLatestQuery selects the portfolio from the most recent
// partition, found by maximizing the recombined date integer over the glob.
func buildPortfolioLatestQuery(bucket string, withAction bool) string {
	columns := portfolioColumnsWithAction
	if !withAction {
		columns = portfolioColumnsLegacy
	}
	source := globSource(bucket, KindPortfolios)
	spec := selectSpec{
		with:    fmt.Sprintf("latest AS (SELECT MAX(%s) AS date_int FROM %s)", dateExpr, source),
		columns: columns,
		source:  source + ", latest",
		where:   []string{fmt.Sprintf("%s = latest.date_int", dateExpr)},
		orderBy: "timestamp, ticker",
	}
	return spec.render()
}
