package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradelake/datamanager/tabular"
)

// Reader runs partition queries through fresh engine sessions.
type Reader struct {
	sessions *SessionFactory
	bucket   string
	logger   *zap.Logger
}

func NewReader(sessions *SessionFactory, bucket string, logger *zap.Logger) *Reader {
	return &Reader{sessions: sessions, bucket: bucket, logger: logger}
}

// QueryBars returns bar rows for the given tickers over [start, end].
// Tickers must already be validated; absent partitions map to ErrNoPartitions.
func (r *Reader) QueryBars(ctx context.Context, tickers []string, start, end time.Time) (tabular.Bars, error) {
	db, err := r.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := buildBarsQuery(r.bucket, tickers, start, end)
	r.logger.Debug("querying bars",
		zap.Int("tickers", len(tickers)),
		zap.Int("start", DateInt(start)),
		zap.Int("end", DateInt(end)))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyQueryErr(err)
	}
	defer rows.Close()

	var bars tabular.Bars
	for rows.Next() {
		var b tabular.Bar
		var vwap sql.NullFloat64
		var tx sql.NullInt64
		if err := rows.Scan(&b.Ticker, &b.Timestamp, &b.Open, &b.High, &b.Low,
			&b.Close, &b.Volume, &vwap, &tx); err != nil {
			return nil, fmt.Errorf("failed to scan bar row: %w", err)
		}
		if vwap.Valid {
			v := vwap.Float64
			b.VWAP = &v
		}
		if tx.Valid {
			n := tx.Int64
			b.Transactions = &n
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryErr(err)
	}
	return bars, nil
}

// QueryPredictions returns the stored rows for the requested tickers from
// the partitions the point timestamps select. Tickers with nothing stored
// there are simply omitted from the result.
func (r *Reader) QueryPredictions(ctx context.Context, points []PredictionPoint) (tabular.Predictions, error) {
	db, err := r.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := buildPredictionsQuery(r.bucket, points)
	r.logger.Debug("querying predictions", zap.Int("points", len(points)))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		if classified := classifyQueryErr(err); classified == ErrNoPartitions {
			return tabular.Predictions{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	var preds tabular.Predictions
	for rows.Next() {
		var p tabular.Prediction
		if err := rows.Scan(&p.Ticker, &p.Timestamp, &p.Quantile10, &p.Quantile50, &p.Quantile90); err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryErr(err)
	}
	return preds, nil
}

// QueryPortfolio returns the portfolio stored at the given day, or the most
// recent one when day is nil. Partitions written before the action column
// existed are read without it and filled with ActionUnspecified.
func (r *Reader) QueryPortfolio(ctx context.Context, day *time.Time) (tabular.Positions, error) {
	db, err := r.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	positions, err := r.queryPortfolioColumns(ctx, db, day, true)
	if isMissingColumn(err, "action") {
		r.logger.Info("portfolio partition predates action column, retrying without it")
		positions, err = r.queryPortfolioColumns(ctx, db, day, false)
	}
	if err != nil {
		return nil, classifyQueryErr(err)
	}
	return positions, nil
}

func (r *Reader) queryPortfolioColumns(ctx context.Context, db *sql.DB, day *time.Time, withAction bool) (tabular.Positions, error) {
	var query string
	if day != nil {
		query = buildPortfolioDayQuery(r.bucket, *day, withAction)
	} else {
		query = buildPortfolioLatestQuery(r.bucket, withAction)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := tabular.Positions{}
	for rows.Next() {
		var p tabular.Position
		if withAction {
			err = rows.Scan(&p.Ticker, &p.Timestamp, &p.Side, &p.DollarAmount, &p.Action)
		} else {
			err = rows.Scan(&p.Ticker, &p.Timestamp, &p.Side, &p.DollarAmount)
			p.Action = tabular.ActionUnspecified
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}
