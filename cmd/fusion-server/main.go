package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"emofuse/internal/config"
	"emofuse/internal/db"
	"emofuse/internal/domain"
	"emofuse/internal/enhancer"
	"emofuse/internal/mqtt"
	"emofuse/internal/pipeline"
	"emofuse/internal/recommend"
)

const maxBodyBytes = 65536

type runRequest struct {
	SubjectID string `json:"subject_id"`
	SessionID string `json:"session_id"`
	At        string `json:"at,omitempty"`
}

type runResponse struct {
	State           domain.UnifiedState      `json:"state"`
	Recommendations domain.RecommendationSet `json:"recommendations"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadFusionServerConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("connect db failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("migrate db failed", "error", err)
		os.Exit(1)
	}

	enhanceProvider, err := enhancer.NewProvider(enhancer.Config{
		Provider:         strings.ToLower(cfg.EnhancerProvider),
		Model:            cfg.EnhancerModel,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
	})
	if err != nil {
		logger.Error("init enhancer failed", "error", err)
		os.Exit(1)
	}

	catalog := recommend.DefaultCatalog()
	if cfg.RulesPath != "" {
		catalog, err = recommend.LoadCatalog(cfg.RulesPath)
		if err != nil {
			logger.Error("load rules catalog failed", "path", cfg.RulesPath, "error", err)
			os.Exit(1)
		}
		logger.Info("rules catalog loaded", "path", cfg.RulesPath, "emotions", len(catalog.Emotions))
	}

	hub := mqtt.NewHub(mqtt.HubConfig{
		BrokerURL:   cfg.MQTTBrokerURL,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
	}, nil, logger)

	svc := pipeline.New(pipeline.Config{
		Window:          cfg.Window,
		StoreTimeout:    cfg.StoreTimeout,
		EnhancerTimeout: cfg.EnhancerTimeout,
	}, store, store, hub, enhanceProvider, recommend.NewGenerator(catalog), logger)

	hub.SetTrigger(svc)
	if err := hub.Start(ctx); err != nil {
		logger.Error("start mqtt hub failed", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Post("/v1/fusion/run", func(w http.ResponseWriter, req *http.Request) {
		var in runRequest
		if err := decodeJSONBody(req, maxBodyBytes, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		if in.SubjectID == "" || in.SessionID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "subject_id and session_id are required"})
			return
		}
		at := time.Now().UTC()
		if in.At != "" {
			parsed, parseErr := time.Parse(time.RFC3339Nano, in.At)
			if parseErr != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "at must be RFC3339"})
				return
			}
			at = parsed.UTC()
		}

		state, recs, err := svc.RunPass(req.Context(), in.SubjectID, in.SessionID, at)
		if err != nil {
			logger.Error("fusion pass failed", "subject_id", in.SubjectID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error(), "retryable": true})
			return
		}
		writeJSON(w, http.StatusOK, runResponse{State: state, Recommendations: recs})
	})
	r.Post("/v1/observations", func(w http.ResponseWriter, req *http.Request) {
		var obs domain.EmotionObservation
		if err := decodeJSONBody(req, maxBodyBytes, &obs); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		if obs.SubjectID == "" || obs.SessionID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "subject_id and session_id are required"})
			return
		}
		if !domain.ValidChannel(obs.Channel) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "channel must be one of face, voice, text"})
			return
		}

		if err := store.InsertObservation(req.Context(), obs); err != nil {
			logger.Error("insert observation failed", "subject_id", obs.SubjectID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "observation store unavailable", "retryable": true})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	})
	r.Get("/v1/state/{subjectID}", func(w http.ResponseWriter, req *http.Request) {
		subjectID := chi.URLParam(req, "subjectID")
		state, recs, err := store.LatestResult(req.Context(), subjectID)
		if errors.Is(err, db.ErrNoResult) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "no fusion result for subject"})
			return
		}
		if err != nil {
			logger.Error("load latest result failed", "subject_id", subjectID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "result store unavailable", "retryable": true})
			return
		}
		writeJSON(w, http.StatusOK, runResponse{State: state, Recommendations: recs})
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("fusion server started", "addr", cfg.HTTPAddr, "window", cfg.Window, "enhancer", cfg.EnhancerProvider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}

func decodeJSONBody(req *http.Request, maxBytes int64, out any) error {
	defer req.Body.Close()
	data, err := io.ReadAll(io.LimitReader(req.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return fmt.Errorf("request body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid json: multiple JSON values")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
