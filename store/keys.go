package store

import (
	"fmt"
	"time"
)

// Kind identifies one dataset in the partition layout.
type Kind string

const (
	KindBars        Kind = "bars"
	KindPredictions Kind = "predictions"
	KindPortfolios  Kind = "portfolios"
)

// CategoriesKey is the singleton object holding the issuer categories CSV.
const CategoriesKey = "equity/details/categories.csv"

// ObjectKey returns the hive-partitioned object key for one daily partition,
// e.g. equity/bars/daily/year=2024/month=03/day=07/data.parquet. The timestamp
// is interpreted in UTC.
func ObjectKey(kind Kind, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("equity/%s/daily/year=%04d/month=%02d/day=%02d/data.parquet",
		kind, t.Year(), int(t.Month()), t.Day())
}

// PartitionGlob returns the read_parquet glob covering every daily partition
// of a kind inside the given bucket.
func PartitionGlob(bucket string, kind Kind) string {
	return fmt.Sprintf("s3://%s/equity/%s/daily/**/*.parquet", bucket, kind)
}

// DateInt encodes a calendar date as year*10000 + month*100 + day. Hive
// partition columns year/month/day recombine to the same value, so a BETWEEN
// over this integer prunes partitions by date range.
func DateInt(t time.Time) int {
	t = t.UTC()
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
