package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tradelake/datamanager/tabular"
)

const (
	contentTypeParquet = "application/octet-stream"
	contentTypeCSV     = "text/csv"
)

// ErrEncode marks table serialization failures; they are internal, not
// upstream, so handlers map them to 500 rather than 502.
var ErrEncode = errors.New("table serialization failed")

// ErrUpload marks object-store write failures.
var ErrUpload = errors.New("object upload failed")

// Writer serializes tables and uploads them into the partition layout.
type Writer struct {
	objects ObjectStore
	logger  *zap.Logger
}

func NewWriter(objects ObjectStore, logger *zap.Logger) *Writer {
	return &Writer{objects: objects, logger: logger}
}

type parquetTable interface {
	ToParquet() ([]byte, error)
}

func (w *Writer) writePartition(ctx context.Context, kind Kind, table parquetTable, t time.Time, rows int) (string, error) {
	data, err := table.ToParquet()
	if err != nil {
		return "", errors.Join(ErrEncode, fmt.Errorf("failed to serialize %s table: %w", kind, err))
	}

	key := ObjectKey(kind, t)
	if err := w.objects.Put(ctx, key, data, contentTypeParquet); err != nil {
		return "", errors.Join(ErrUpload, err)
	}

	w.logger.Info("wrote partition",
		zap.String("kind", string(kind)),
		zap.String("key", key),
		zap.Int("rows", rows),
		zap.Int("bytes", len(data)))
	return key, nil
}

// WriteBars writes a bar table into the partition for the given day.
func (w *Writer) WriteBars(ctx context.Context, bars tabular.Bars, day time.Time) (string, error) {
	return w.writePartition(ctx, KindBars, bars, day, len(bars))
}

// WritePredictions writes a prediction table into the partition for the
// given day.
func (w *Writer) WritePredictions(ctx context.Context, preds tabular.Predictions, day time.Time) (string, error) {
	return w.writePartition(ctx, KindPredictions, preds, day, len(preds))
}

// WritePortfolio writes a portfolio table into the partition for the given
// day.
func (w *Writer) WritePortfolio(ctx context.Context, positions tabular.Positions, day time.Time) (string, error) {
	return w.writePartition(ctx, KindPortfolios, positions, day, len(positions))
}

// WriteDetails replaces the issuer categories CSV.
func (w *Writer) WriteDetails(ctx context.Context, details tabular.Details) (string, error) {
	data, err := details.ToCSV()
	if err != nil {
		return "", errors.Join(ErrEncode, err)
	}
	if err := w.objects.Put(ctx, CategoriesKey, data, contentTypeCSV); err != nil {
		return "", errors.Join(ErrUpload, err)
	}
	w.logger.Info("wrote categories csv", zap.Int("rows", len(details)), zap.Int("bytes", len(data)))
	return CategoriesKey, nil
}

// ReadDetails fetches and normalizes the issuer categories CSV. A missing
// object maps to ErrNoPartitions.
func ReadDetails(ctx context.Context, objects ObjectStore) (tabular.Details, error) {
	data, err := objects.Get(ctx, CategoriesKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoPartitions
		}
		return nil, err
	}
	details, err := tabular.DetailsFromBytes(data)
	if err != nil {
		return nil, err
	}
	return details.Normalize(), nil
}
