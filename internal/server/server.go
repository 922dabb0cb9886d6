// Package server exposes the note pipelines over HTTP.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/internal/export"
	"github.com/zeyupan/autonotes/internal/network"
	"github.com/zeyupan/autonotes/internal/note"
	"github.com/zeyupan/autonotes/internal/record"
	"github.com/zeyupan/autonotes/internal/telemetry"
	"github.com/zeyupan/autonotes/provider"
)

// Run wires the pipelines from config and serves until the listener fails.
func Run(addr string, cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s rid=%s from %s: %v", code, req.Method, req.URL.Path, c.Response().Header().Get(echo.HeaderXRequestID), c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	pricing := map[string]config.LLMModel{}
	for _, p := range cfg.LLM.Providers {
		for _, m := range p.Models {
			pricing[m.APIModel()] = m
		}
	}
	tel := telemetry.New(cfg.Telemetry, pricing, prometheus.DefaultRegisterer)

	routing := cfg.LLM.Routing
	noteProviderCfg, noteModel, err := cfg.StageProvider(routing.Note)
	if err != nil {
		return err
	}
	_, structuringModel, err := cfg.StageProvider(routing.Structuring)
	if err != nil {
		return err
	}
	_, longformModel, err := cfg.StageProvider(routing.Longform)
	if err != nil {
		return err
	}
	networkProviderCfg, networkModel, err := cfg.StageProvider(routing.Network)
	if err != nil {
		return err
	}
	summaryProviderCfg, summaryModel, err := cfg.StageProvider(routing.Summary)
	if err != nil {
		return err
	}

	noteProvider, err := provider.New(noteProviderCfg)
	if err != nil {
		return err
	}
	networkProvider, err := provider.New(networkProviderCfg)
	if err != nil {
		return err
	}
	summaryProvider, err := provider.New(summaryProviderCfg)
	if err != nil {
		return err
	}

	notes := note.NewPipeline(note.PipelineConfig{
		NoteModel:            noteModel,
		StructuringModel:     structuringModel,
		LongformModel:        longformModel,
		StructuringThreshold: routing.StructuringThreshold,
	}, noteProvider, tel, log.New(log.Writer(), "[NOTE] ", log.LstdFlags))

	graphs := network.NewSynthesizer(networkModel, networkProvider, tel, log.New(log.Writer(), "[NETWORK] ", log.LstdFlags))

	recordings := record.NewPipeline(
		record.NewWhisperClient(cfg.Transcribe),
		summaryProvider, tel,
		log.New(log.Writer(), "[RECORD] ", log.LstdFlags),
		summaryModel, cfg.General.DataDir,
	)

	exporter := export.NewRenderer(cfg.Export, log.New(log.Writer(), "[EXPORT] ", log.LstdFlags))

	h := &NotesHandler{
		Notes:   notes,
		Graphs:  graphs,
		Records: recordings,
		Export:  exporter,
		Timeout: cfg.General.DefaultTimeout,
	}
	h.Register(e.Group(""))

	if addr == "" {
		addr = cfg.General.Listen
		if addr == "" {
			addr = ":8000"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
