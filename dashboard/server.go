// Package dashboard serves the monitor's status over HTTP.
package dashboard

import (
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/monitor"
)

// SnapshotProvider is implemented by *monitor.Monitor.
type SnapshotProvider interface {
	Snapshot() monitor.Snapshot
}

//go:embed index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
}).Parse(indexHTML))

// NewServer returns the dashboard router. gatherer backs /metrics; nil
// uses the default gatherer.
func NewServer(src SnapshotProvider, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &server{src: src}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.index)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/api/data", s.data)
	r.Get("/api/signals/{symbol}", s.signal)
	r.Get("/api/trades", s.trades)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

type server struct {
	src SnapshotProvider
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, s.src.Snapshot()); err != nil {
		log.Error().Err(err).Msg("render dashboard")
	}
}

func (s *server) data(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Snapshot())
}

func (s *server) signal(w http.ResponseWriter, r *http.Request) {
	sym := strings.ToUpper(chi.URLParam(r, "symbol"))
	st, ok := s.src.Snapshot().Signals[sym]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown symbol " + sym})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// trades lists replayed trades, newest first. Optional query parameters:
// symbol, status (OPEN|CLOSED) and limit.
func (s *server) trades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sym := strings.ToUpper(q.Get("symbol"))
	status := strings.ToUpper(q.Get("status"))

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "bad limit"})
			return
		}
		limit = n
	}

	out := []ledger.TradeRecord{}
	for _, t := range s.src.Snapshot().History {
		if sym != "" && t.Instrument != sym {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http")
	})
}
