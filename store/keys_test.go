package store

import (
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		at   time.Time
		want string
	}{
		{
			name: "bars zero padded",
			kind: KindBars,
			at:   time.Date(2024, 3, 7, 15, 30, 0, 0, time.UTC),
			want: "equity/bars/daily/year=2024/month=03/day=07/data.parquet",
		},
		{
			name: "predictions end of year",
			kind: KindPredictions,
			at:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			want: "equity/predictions/daily/year=2023/month=12/day=31/data.parquet",
		},
		{
			name: "portfolios double digit day",
			kind: KindPortfolios,
			at:   time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC),
			want: "equity/portfolios/daily/year=2025/month=10/day=15/data.parquet",
		},
		{
			name: "non-utc input normalized to utc",
			kind: KindBars,
			at:   time.Date(2024, 1, 1, 1, 0, 0, 0, time.FixedZone("plus5", 5*3600)),
			want: "equity/bars/daily/year=2023/month=12/day=31/data.parquet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObjectKey(tt.kind, tt.at); got != tt.want {
				t.Errorf("ObjectKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateInt(t *testing.T) {
	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), 20240307},
		{time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), 20231231},
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 20000101},
	}
	for _, tt := range tests {
		if got := DateInt(tt.at); got != tt.want {
			t.Errorf("DateInt(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestDateIntOrdersAdjacentDays(t *testing.T) {
	// Month and year boundaries must stay strictly increasing for the
	// BETWEEN predicate to prune correctly.
	day := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)
	if DateInt(day) >= DateInt(next) {
		t.Errorf("DateInt not increasing across year boundary: %d >= %d", DateInt(day), DateInt(next))
	}
}

func TestPartitionGlob(t *testing.T) {
	got := PartitionGlob("data-bucket", KindBars)
	want := "s3://data-bucket/equity/bars/daily/**/*.parquet"
	if got != want {
		t.Errorf("PartitionGlob() = %q, want %q", got, want)
	}
}

func TestCategoriesKey(t *testing.T) {
	if CategoriesKey != "equity/details/categories.csv" {
		t.Errorf("CategoriesKey = %q", CategoriesKey)
	}
}
