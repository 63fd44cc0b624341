// Package api provides the HTTP REST API server for tickersent.
//
// It exposes endpoints that run the sentiment pipeline over posted rows or
// over the configured supplier, ticker discovery, and a WebSocket stream of
// completed runs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/tickersent/internal/config"
	"github.com/seenimoa/tickersent/internal/datasource"
	"github.com/seenimoa/tickersent/internal/export"
	"github.com/seenimoa/tickersent/internal/infra"
	"github.com/seenimoa/tickersent/internal/pipeline"
	"github.com/seenimoa/tickersent/pkg/models"
	"github.com/seenimoa/tickersent/pkg/utils"
)

// maxBodyBytes caps POSTed row batches.
const maxBodyBytes = 10 << 20

// TickerDiscoverer lists tickers currently in the news or matching screener
// filters.
type TickerDiscoverer interface {
	DiscoverTickers(ctx context.Context) ([]string, error)
	ScreenTickers(ctx context.Context, filters ...string) ([]string, error)
}

// Deps are the collaborators a Server runs against.
type Deps struct {
	Pipeline   *pipeline.Pipeline
	Supplier   datasource.Supplier // used by GET /api/v1/sentiment; optional
	Discoverer TickerDiscoverer    // optional
	Logger     *slog.Logger
	Version    string
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	cfg        *config.Config
	pipe       *pipeline.Pipeline
	supplier   datasource.Supplier
	discoverer TickerDiscoverer
	wsHub      *WSHub
	log        *slog.Logger
	version    string
	started    time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: nil config")
	}
	if deps.Pipeline == nil {
		return nil, errors.New("api: nil pipeline")
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	srv := &Server{
		cfg:        cfg,
		pipe:       deps.Pipeline,
		supplier:   deps.Supplier,
		discoverer: deps.Discoverer,
		wsHub:      NewWSHub(),
		log:        infra.OrDefault(deps.Logger),
		version:    version,
		started:    time.Now(),
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub runs are broadcast on.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when ctx
// is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Sentiment runs
		r.Post("/sentiment", s.handleSentimentRows)
		r.Get("/sentiment", s.handleSentimentSupplier)

		// Tickers
		r.Get("/tickers/discover", s.handleDiscover)

		// Config (read-only)
		r.Get("/config", s.handleGetConfig)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SentimentRequest is the body for POST /api/v1/sentiment.
type SentimentRequest struct {
	Rows        []models.RawRow `json:"rows"`
	TickerOrder []string        `json:"ticker_order,omitempty"`
}

// DroppedRow is a row the normalizer could not date.
type DroppedRow struct {
	Ticker string `json:"ticker"`
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// FailedRecord is a record the scorer could not score.
type FailedRecord struct {
	Ticker string `json:"ticker"`
	Date   string `json:"date"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// FetchFailure is a ticker the supplier could not fetch.
type FetchFailure struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// SentimentResponse is the result of one pipeline run.
type SentimentResponse struct {
	Date string `json:"date"`
	export.TableJSON
	Dropped     []DroppedRow     `json:"dropped"`
	Failures    []FailedRecord   `json:"failures"`
	FetchErrors []FetchFailure   `json:"fetch_errors,omitempty"`
	Summary     pipeline.Summary `json:"summary"`
}

func newSentimentResponse(res *pipeline.Result, fetchErrs []pipeline.FetchError) SentimentResponse {
	out := SentimentResponse{
		Date:      res.Date.String(),
		TableJSON: export.NewTableJSON(res.Table),
		Dropped:   make([]DroppedRow, 0, len(res.Dropped)),
		Failures:  make([]FailedRecord, 0, len(res.Failures)),
		Summary:   res.Summary(),
	}
	for _, d := range res.Dropped {
		out.Dropped = append(out.Dropped, DroppedRow{
			Ticker: d.Row.Ticker,
			Index:  d.Index,
			Label:  d.Row.Label,
			Reason: d.Reason.Error(),
		})
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, FailedRecord{
			Ticker: f.Record.Ticker,
			Date:   f.Record.Date.String(),
			Text:   f.Record.Text,
			Error:  f.Err.Error(),
		})
	}
	for _, fe := range fetchErrs {
		out.FetchErrors = append(out.FetchErrors, FetchFailure{Ticker: fe.Ticker, Error: fe.Err.Error()})
	}
	return out
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    s.version,
			"uptime":     time.Since(s.started).Round(time.Second).String(),
			"ws_clients": s.wsHub.ClientCount(),
			"time":       time.Now().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleSentimentRows(w http.ResponseWriter, r *http.Request) {
	var req SentimentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	p := s.pipe
	if order := utils.ParseTickerList(req.TickerOrder...); len(order) > 0 {
		p = p.With(pipeline.WithTickerOrder(order...))
	}

	res, err := p.Run(r.Context(), req.Rows)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	resp := newSentimentResponse(res, nil)
	s.wsHub.Broadcast(WSMessage{Type: "table", Data: resp})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleSentimentSupplier(w http.ResponseWriter, r *http.Request) {
	if s.supplier == nil {
		writeError(w, http.StatusServiceUnavailable, "no supplier configured")
		return
	}

	tickers := utils.ParseTickerList(r.URL.Query().Get("tickers"))
	filters := screenFilters(r)
	if len(tickers) == 0 && len(filters) == 0 {
		tickers = utils.ParseTickerList(s.cfg.Pipeline.Tickers...)
		filters = s.cfg.Pipeline.Screen
	}
	if len(filters) > 0 {
		if s.discoverer == nil {
			writeError(w, http.StatusNotImplemented, "screening requires the finviz supplier")
			return
		}
		found, err := s.discoverer.ScreenTickers(r.Context(), filters...)
		if err != nil {
			s.log.Warn("ticker screen failed", "filters", filters, "error", err)
			writeError(w, http.StatusBadGateway, "screen failed: "+err.Error())
			return
		}
		tickers = utils.ParseTickerList(append(tickers, found...)...)
	}
	if len(tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers is required")
		return
	}

	p := s.pipe.With(pipeline.WithTickerOrder(tickers...))
	res, fetchErrs, err := p.RunSupplier(r.Context(), s.supplier, tickers)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	resp := newSentimentResponse(res, fetchErrs)
	s.wsHub.Broadcast(WSMessage{Type: "table", Data: resp})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if s.discoverer == nil {
		writeError(w, http.StatusNotImplemented, "ticker discovery requires the finviz supplier")
		return
	}
	var tickers []string
	var err error
	if filters := screenFilters(r); len(filters) > 0 {
		tickers, err = s.discoverer.ScreenTickers(r.Context(), filters...)
	} else {
		tickers, err = s.discoverer.DiscoverTickers(r.Context())
	}
	if err != nil {
		s.log.Warn("ticker discovery failed", "error", err)
		writeError(w, http.StatusBadGateway, "discovery failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"tickers": tickers,
			"count":   len(tickers),
		},
	})
}

// screenFilters reads the comma-separated "screen" query parameter.
func screenFilters(r *http.Request) []string {
	var out []string
	for _, f := range strings.Split(r.URL.Query().Get("screen"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// writeRunError maps a pipeline error to a status code.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInputContract):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "run canceled: "+err.Error())
	default:
		s.log.Error("pipeline run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{} // closed when Run returns
	last       *WSMessage    // most recent "table" message
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub   *WSHub
	send  chan WSMessage // broadcasts; closed by the hub
	reply chan WSMessage // answers to this client's requests
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
	}
}

// Run starts the hub event loop. It returns when ctx is done, after
// disconnecting every client. Run must be called at most once.
func (h *WSHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			if msg.Type == "table" {
				m := msg
				h.last = &m
			}
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// Last returns the most recently broadcast table, if any.
func (h *WSHub) Last() (WSMessage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return WSMessage{}, false
	}
	return *h.last, true
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed once the hub has stopped.
func (h *WSHub) Done() <-chan struct{} {
	return h.done
}

// Register adds a client to the hub. A client registering with a stopped
// hub has its send channel closed straight away.
func (h *WSHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

