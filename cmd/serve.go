package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/confecoes-lanca/prospector/internal/export"
	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/outreach"
	"github.com/confecoes-lanca/prospector/internal/pipeline"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/internal/workflow"
)

var servePort int

// apiEnv holds the dependencies the HTTP handlers need.
type apiEnv struct {
	store   store.Store
	manager *workflow.Manager
	sender  *outreach.Sender

	// searchLimiter throttles new city searches; each run costs real
	// API spend.
	searchLimiter *rate.Limiter
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiEnv{
			store:         env.Store,
			manager:       env.Manager,
			sender:        env.Sender,
			searchLimiter: rate.NewLimiter(rate.Every(time.Minute), 3),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(api),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *apiEnv) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", env.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/prospects", env.handleListProspects)
		r.Get("/prospects/export", env.handleExportProspects)
		r.Get("/prospects/{id}", env.handleGetProspect)
		r.Patch("/prospects/{id}/status", env.handleUpdateStatus)

		r.Post("/search/{city}", env.handleSearch)
		r.Get("/workflow/{id}", env.handleRunStatus)
		r.Post("/workflow/{id}/resume", env.handleResume)

		r.Post("/email/send", env.handleSendEmail)
		r.Get("/analytics/summary", env.handleAnalytics)
	})

	return r
}

func (env *apiEnv) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := env.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (env *apiEnv) handleListProspects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ProspectFilter{
		City:        store.NormalizeCity(q.Get("city")),
		Country:     q.Get("country"),
		CountryCode: q.Get("country_code"),
		Status:      model.ProspectStatus(q.Get("status")),
	}
	for param, dst := range map[string]*float64{
		"min_score": &filter.MinScore,
		"max_score": &filter.MaxScore,
		"min_price": &filter.MinPrice,
		"max_price": &filter.MaxPrice,
	} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+param)
			return
		}
		*dst = f
	}
	for param, dst := range map[string]*int{
		"min_stores": &filter.MinStores,
		"max_stores": &filter.MaxStores,
	} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+param)
			return
		}
		*dst = n
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	prospects, err := env.store.ListProspects(r.Context(), filter)
	if err != nil {
		zap.L().Error("list prospects failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list prospects failed")
		return
	}
	writeJSON(w, http.StatusOK, prospects)
}

func (env *apiEnv) handleExportProspects(w http.ResponseWriter, r *http.Request) {
	prospects, err := env.store.ListProspects(r.Context(), store.ProspectFilter{
		City: store.NormalizeCity(r.URL.Query().Get("city")),
	})
	if err != nil {
		zap.L().Error("export prospects failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list prospects failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="prospects.xlsx"`)
	if err := export.WriteProspectsXLSX(prospects, w); err != nil {
		zap.L().Error("write workbook failed", zap.Error(err))
	}
}

func (env *apiEnv) handleGetProspect(w http.ResponseWriter, r *http.Request) {
	p, err := env.store.GetProspect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "prospect not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (env *apiEnv) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status model.ProspectStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	p, err := env.store.GetProspect(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "prospect not found")
		return
	}
	if !model.CanTransition(p.Status, req.Status) {
		writeError(w, http.StatusConflict, fmt.Sprintf("cannot move from %s to %s", p.Status, req.Status))
		return
	}

	if err := env.store.UpdateProspectStatus(r.Context(), id, req.Status); err != nil {
		zap.L().Error("update status failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update status failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(req.Status)})
}

func (env *apiEnv) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !env.searchLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "search rate limit exceeded")
		return
	}

	city := chi.URLParam(r, "city")

	var req struct {
		Country     string `json:"country"`
		Force       bool   `json:"force"`
		AutoApprove bool   `json:"auto_approve"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	run := pipeline.NewRun(uuid.New().String(), city, req.Country)
	run.Force = req.Force

	if req.AutoApprove {
		// Unreviewed runs execute in the background; the request context
		// dies with the response.
		go func() {
			status, err := env.manager.Start(context.Background(), run, true)
			if err != nil {
				zap.L().Error("background run failed",
					zap.String("run_id", run.ID),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("background run finished",
				zap.String("run_id", status.ID),
				zap.String("state", string(status.State)),
			)
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": run.ID,
			"state":  string(model.RunRunning),
		})
		return
	}

	status, err := env.manager.Start(r.Context(), run, false)
	if err != nil {
		zap.L().Error("start run failed", zap.String("city", city), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "start run failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (env *apiEnv) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	status, err := env.manager.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (env *apiEnv) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ev workflow.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := env.manager.Resume(r.Context(), id, ev)
	if err != nil {
		zap.L().Error("resume run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (env *apiEnv) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProspectID string `json:"prospect_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProspectID == "" {
		writeError(w, http.StatusBadRequest, "prospect_id is required")
		return
	}

	p, err := env.store.GetProspect(r.Context(), req.ProspectID)
	if err != nil {
		writeError(w, http.StatusNotFound, "prospect not found")
		return
	}

	if err := env.sender.SendAlert(r.Context(), p); err != nil {
		zap.L().Error("send alert failed", zap.String("prospect_id", req.ProspectID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "send alert failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "prospect_id": req.ProspectID})
}

func (env *apiEnv) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := env.store.Summary(r.Context())
	if err != nil {
		zap.L().Error("analytics summary failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
