package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"skullboard/models"
	"skullboard/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const maxRenderBody = 8 << 20

// Screenshotter turns a render page URL into a PNG.
type Screenshotter interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// ServerDeps wires the render HTTP service.
type ServerDeps struct {
	Assets   *AssetProxy
	Payloads *PayloadStore
	Renderer Screenshotter
	Metrics  *Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Health is told about every render outcome; optional.
	Health HealthReporter
	// RequestTimeout bounds one POST /api/render; zero means no extra bound.
	RequestTimeout time.Duration
}

// Server is the HTTP side of the render service.
type Server struct {
	deps   ServerDeps
	tmpl   *template.Template
	router *mux.Router
	cron   *cron.Cron
	http   *http.Server
}

func NewServer(deps ServerDeps) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{deps: deps, tmpl: tmpl}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/api/render", s.handleRender).Methods(http.MethodPost)
	r.HandleFunc("/api/render", s.handleAsset).Methods(http.MethodGet)
	r.HandleFunc("/render", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving on addr and sweeping expired cache entries every 10s.
func (s *Server) Start(addr string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every 10s", s.sweep); err != nil {
		return fmt.Errorf("could not set up sweep job: %w", err)
	}
	s.cron.Start()

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("Render", "ListenAndServe", err.Error())
		}
	}()
	utils.Info("Render", "Start", "render service listening on "+addr)
	return nil
}

// Stop shuts the HTTP server and the sweep job down.
func (s *Server) Stop(ctx context.Context) error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) sweep() {
	assets := s.deps.Assets.Sweep()
	payloads := s.deps.Payloads.Sweep()
	if assets+payloads > 0 {
		utils.Logger.Debug("swept expired cache entries",
			zap.Int("assets", assets), zap.Int("payloads", payloads))
	}
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.deps.Metrics.RenderDuration.Observe(time.Since(start).Seconds()) }()

	var doc models.RenderDocument
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRenderBody)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	if doc.Message.ID == "" || doc.Message.Author == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required message fields"})
		return
	}

	ctx := r.Context()
	if s.deps.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.RequestTimeout)
		defer cancel()
	}

	host := r.Host
	s.deps.Assets.ProxyDocument(ctx, &doc, host)
	id := s.deps.Payloads.Put(&doc)

	png, err := s.deps.Renderer.Render(ctx, fmt.Sprintf("http://%s/render?id=%s", host, id))
	if err != nil {
		s.report(false)
		utils.Error("Render", "Screenshot", fmt.Sprintf("render of message %s failed: %v", doc.Message.ID, err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Screenshot failed"})
		return
	}
	s.report(true)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) report(ok bool) {
	if s.deps.Health != nil {
		s.deps.Health.Report(ok)
	}
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("_img")
	if key == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	asset, ok := s.deps.Assets.Lookup(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Image not found or expired"})
		return
	}
	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(asset.Data)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		doc     *models.RenderDocument
		preview = q.Get("preview") == "1"
	)
	if preview {
		doc = PreviewDocument()
	} else {
		id := q.Get("id")
		if id == "" {
			http.Error(w, "Missing id parameter", http.StatusBadRequest)
			return
		}
		var ok bool
		if doc, ok = s.deps.Payloads.Get(id); !ok {
			http.Error(w, "Render payload not found or expired", http.StatusNotFound)
			return
		}
	}

	var buf bytes.Buffer
	if err := renderPage(s.tmpl, &buf, doc, preview); err != nil {
		utils.Error("Render", "Template", err.Error())
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"assets":   s.deps.Assets.Len(),
		"payloads": s.deps.Payloads.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		utils.LogRequest(r, rec.status, time.Since(start))
	})
}
