package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradelake/datamanager/massive"
	"github.com/tradelake/datamanager/store"
	"github.com/tradelake/datamanager/tabular"
)

// PartitionReader queries the partitioned datasets.
type PartitionReader interface {
	QueryBars(ctx context.Context, tickers []string, start, end time.Time) (tabular.Bars, error)
	QueryPredictions(ctx context.Context, points []store.PredictionPoint) (tabular.Predictions, error)
	QueryPortfolio(ctx context.Context, day *time.Time) (tabular.Positions, error)
}

// PartitionWriter writes the partitioned datasets.
type PartitionWriter interface {
	WriteBars(ctx context.Context, bars tabular.Bars, day time.Time) (string, error)
	WritePredictions(ctx context.Context, preds tabular.Predictions, day time.Time) (string, error)
	WritePortfolio(ctx context.Context, positions tabular.Positions, day time.Time) (string, error)
	WriteDetails(ctx context.Context, details tabular.Details) (string, error)
}

// Upstream is the Massive API surface the sync handlers use.
type Upstream interface {
	GroupedDailyBars(ctx context.Context, day time.Time) ([]massive.BarResult, error)
	ReferenceTickers(ctx context.Context) ([]massive.TickerResult, error)
}

// Server wires the dataset handlers together.
type Server struct {
	reader   PartitionReader
	writer   PartitionWriter
	objects  store.ObjectStore
	upstream Upstream
	metrics  *Metrics
	logger   *zap.Logger
}

func NewServer(reader PartitionReader, writer PartitionWriter, objects store.ObjectStore, upstream Upstream, metrics *Metrics, logger *zap.Logger) *Server {
	return &Server{
		reader:   reader,
		writer:   writer,
		objects:  objects,
		upstream: upstream,
		metrics:  metrics,
		logger:   logger,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFromErr maps the error taxonomy onto response codes: absent data is
// 404, upstream and object-store failures are 502, the rest is internal.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, store.ErrNoPartitions):
		return http.StatusNotFound
	case errors.Is(err, massive.ErrUpstream),
		errors.Is(err, massive.ErrDecode),
		errors.Is(err, store.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, kind, op string, err error) {
	status := statusFromErr(err)
	s.logger.Error("request failed",
		zap.String("kind", kind),
		zap.String("op", op),
		zap.Int("status", status),
		zap.Error(err))
	respondError(w, status, err.Error())
}

func (s *Server) countOutcome(vec string, kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	switch vec {
	case "sync":
		s.metrics.SyncsTotal.WithLabelValues(kind, outcome).Inc()
	case "query":
		s.metrics.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseTickers splits a comma-separated ticker list, trims and upper-cases
// entries, drops empties, and validates the survivors.
func parseTickers(raw string) ([]string, error) {
	var tickers []string
	for _, part := range strings.Split(raw, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if ticker == "" {
			continue
		}
		if !store.ValidTicker(ticker) {
			return nil, fmt.Errorf("invalid ticker %q", ticker)
		}
		tickers = append(tickers, ticker)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers provided")
	}
	return tickers, nil
}

// parseUnixParam parses an optional epoch-seconds query parameter.
func parseUnixParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q", raw)
	}
	t := time.Unix(int64(seconds), 0).UTC()
	return &t, nil
}

type syncBarsRequest struct {
	Date string `json:"date"`
}

// HandleSyncBars pulls the grouped daily bars for one date from upstream and
// writes the partition. A day with no results is 204.
func (s *Server) HandleSyncBars(w http.ResponseWriter, r *http.Request) {
	var req syncBarsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", req.Date))
		return
	}

	results, err := s.upstream.GroupedDailyBars(r.Context(), day)
	if err == nil && len(results) == 0 {
		s.countOutcome("sync", "bars", nil)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var key string
	if err == nil {
		bars := make(tabular.Bars, 0, len(results))
		for _, res := range results {
			bars = append(bars, tabular.Bar{
				Ticker:       res.Ticker,
				Timestamp:    res.Timestamp,
				Open:         res.Open,
				High:         res.High,
				Low:          res.Low,
				Close:        res.Close,
				Volume:       res.Volume,
				VWAP:         res.VWAP,
				Transactions: res.Transactions,
			})
		}
		key, err = s.writer.WriteBars(r.Context(), bars.Normalize(), day)
	}

	s.countOutcome("sync", "bars", err)
	if err != nil {
		s.respondFailure(w, "bars", "sync", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"key": key, "rows": len(results)})
}

// HandleQueryBars returns bar rows for the requested tickers and date range
// as a parquet file.
func (s *Server) HandleQueryBars(w http.ResponseWriter, r *http.Request) {
	tickers, err := parseTickers(r.URL.Query().Get("tickers"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseUnixParam(r.URL.Query().Get("start_timestamp"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseUnixParam(r.URL.Query().Get("end_timestamp"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	startAt, endAt, err := store.ResolveDateRange(start, end, time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.reader.QueryBars(r.Context(), tickers, startAt, endAt)
	s.countOutcome("query", "bars", err)
	if err != nil {
		s.respondFailure(w, "bars", "query", err)
		return
	}

	data, err := bars.ToParquet()
	if err != nil {
		s.respondFailure(w, "bars", "query", errors.Join(store.ErrEncode, err))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type predictionsPayload struct {
	Data      tabular.Predictions `json:"data"`
	Timestamp float64             `json:"timestamp"`
}

// HandleWritePredictions deduplicates the payload per ticker and writes the
// partition for the payload timestamp, defaulting to the newest row.
func (s *Server) HandleWritePredictions(w http.ResponseWriter, r *http.Request) {
	var payload predictionsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload.Data) == 0 {
		respondError(w, http.StatusBadRequest, "data must not be empty")
		return
	}
	for _, row := range payload.Data {
		if !store.ValidTicker(row.Ticker) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid ticker %q", row.Ticker))
			return
		}
	}

	preds := payload.Data.Normalize()
	partitionAt := payload.Timestamp
	if partitionAt == 0 {
		partitionAt = preds.MaxTimestamp()
	}
	day := time.Unix(int64(partitionAt), 0).UTC()

	key, err := s.writer.WritePredictions(r.Context(), preds, day)
	s.countOutcome("sync", "predictions", err)
	if err != nil {
		s.respondFailure(w, "predictions", "write", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"key": key, "rows": len(preds)})
}

// HandleQueryPredictions returns the stored rows for the requested
// (ticker, timestamp) points as JSON.
func (s *Server) HandleQueryPredictions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("tickers_and_timestamps")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "tickers_and_timestamps is required")
		return
	}
	var points []store.PredictionPoint
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		respondError(w, http.StatusBadRequest, "invalid tickers_and_timestamps")
		return
	}
	if len(points) == 0 {
		respondError(w, http.StatusBadRequest, "tickers_and_timestamps must not be empty")
		return
	}
	for _, pt := range points {
		if !store.ValidTicker(pt.Ticker) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid ticker %q", pt.Ticker))
			return
		}
	}

	preds, err := s.reader.QueryPredictions(r.Context(), points)
	s.countOutcome("query", "predictions", err)
	if err != nil {
		s.respondFailure(w, "predictions", "query", err)
		return
	}
	if preds == nil {
		preds = tabular.Predictions{}
	}
	respondJSON(w, http.StatusOK, preds)
}

type portfolioPayload struct {
	Data      tabular.Positions `json:"data"`
	Timestamp float64           `json:"timestamp"`
}

// HandleWritePortfolio writes a portfolio snapshot. An empty snapshot is
// valid (a liquidated book) but then needs an explicit timestamp to place
// the partition.
func (s *Server) HandleWritePortfolio(w http.ResponseWriter, r *http.Request) {
	var payload portfolioPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, row := range payload.Data {
		if !store.ValidTicker(row.Ticker) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid ticker %q", row.Ticker))
			return
		}
	}

	positions := payload.Data.Normalize()
	partitionAt := payload.Timestamp
	if partitionAt == 0 {
		partitionAt = positions.MaxTimestamp()
	}
	if partitionAt == 0 {
		respondError(w, http.StatusBadRequest, "timestamp is required for an empty portfolio")
		return
	}
	day := time.Unix(int64(partitionAt), 0).UTC()

	key, err := s.writer.WritePortfolio(r.Context(), positions, day)
	s.countOutcome("sync", "portfolios", err)
	if err != nil {
		s.respondFailure(w, "portfolios", "write", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"key": key, "rows": len(positions)})
}

// HandleQueryPortfolio returns the portfolio at an exact day, or the most
// recent one when no timestamp is given.
func (s *Server) HandleQueryPortfolio(w http.ResponseWriter, r *http.Request) {
	day, err := parseUnixParam(r.URL.Query().Get("timestamp"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions, err := s.reader.QueryPortfolio(r.Context(), day)
	s.countOutcome("query", "portfolios", err)
	if err != nil {
		s.respondFailure(w, "portfolios", "query", err)
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// HandleSyncDetails refreshes the issuer categories CSV from the upstream
// reference listing, keeping only common stock and ADR entries.
func (s *Server) HandleSyncDetails(w http.ResponseWriter, r *http.Request) {
	results, err := s.upstream.ReferenceTickers(r.Context())

	var details tabular.Details
	if err == nil {
		for _, res := range results {
			if res.Ticker == "" || !massive.IsEquityType(res.Type) {
				continue
			}
			details = append(details, tabular.Detail{
				Ticker:   res.Ticker,
				Sector:   res.Sector,
				Industry: res.Industry,
			})
		}
		details = details.Normalize()
		if len(details) == 0 {
			s.countOutcome("sync", "details", nil)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	var key string
	if err == nil {
		key, err = s.writer.WriteDetails(r.Context(), details)
	}

	s.countOutcome("sync", "details", err)
	if err != nil {
		s.respondFailure(w, "details", "sync", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"key": key, "rows": len(details)})
}

// HandleQueryDetails serves the normalized issuer categories CSV. The CSV is
// maintained by the sync endpoint, so its absence is an upstream-dependency
// failure rather than a client error.
func (s *Server) HandleQueryDetails(w http.ResponseWriter, r *http.Request) {
	details, err := store.ReadDetails(r.Context(), s.objects)
	if errors.Is(err, store.ErrNoPartitions) {
		err = fmt.Errorf("%w: categories csv has not been synced", massive.ErrUpstream)
	}
	s.countOutcome("query", "details", err)
	if err != nil {
		s.respondFailure(w, "details", "query", err)
		return
	}

	data, err := details.ToCSV()
	if err != nil {
		s.respondFailure(w, "details", "query", errors.Join(store.ErrEncode, err))
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
