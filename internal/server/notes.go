package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zeyupan/autonotes/internal/export"
	"github.com/zeyupan/autonotes/internal/network"
	"github.com/zeyupan/autonotes/internal/note"
	"github.com/zeyupan/autonotes/internal/record"
	"github.com/zeyupan/autonotes/models"
)

// NotesHandler exposes the recording, note, network and export pipelines.
// Every endpoint accepts ?fake=true and then answers with a canned fixture
// instead of calling the backends, which keeps frontend work decoupled
// from provider quota.
type NotesHandler struct {
	Notes   *note.Pipeline
	Graphs  *network.Synthesizer
	Records *record.Pipeline
	Export  *export.Renderer
	Timeout time.Duration
	// FakeDelay simulates backend latency in fake mode.
	FakeDelay time.Duration
}

func (h *NotesHandler) Register(g *echo.Group) {
	g.GET("/test", h.test)
	g.POST("/record", h.record)
	g.POST("/note", h.note)
	g.POST("/network", h.network)
	g.POST("/export", h.export)
}

func (h *NotesHandler) test(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"response": "OK"})
}

func (h *NotesHandler) fake(c echo.Context) bool {
	if c.QueryParam("fake") != "true" {
		return false
	}
	if h.FakeDelay > 0 {
		time.Sleep(h.FakeDelay)
	}
	return true
}

func (h *NotesHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if h.Timeout > 0 {
		return context.WithTimeout(ctx, h.Timeout)
	}
	return ctx, func() {}
}

func (h *NotesHandler) record(c echo.Context) error {
	if h.fake(c) {
		return c.JSON(http.StatusOK, models.FakeRecordResponse())
	}
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file upload required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	ctx, cancel := h.requestContext(c)
	defer cancel()
	resp, err := h.Records.Process(ctx, file.Filename, src)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NotesHandler) note(c echo.Context) error {
	if h.fake(c) {
		return c.JSON(http.StatusOK, models.FakeNoteResponse())
	}
	var req models.NoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.RawRecognition) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "raw_recognition required")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	resp, err := h.Notes.Note(ctx, req.RawRecognition)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NotesHandler) network(c echo.Context) error {
	if h.fake(c) {
		return c.JSON(http.StatusOK, models.FakeNetworkResponse())
	}
	var req models.NetworkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	resp, err := h.Graphs.Graph(ctx, req.Lectures)
	if err != nil {
		if errors.Is(err, models.ErrMalformedResponse) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *NotesHandler) export(c echo.Context) error {
	var req models.ExportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic required")
	}
	for _, p := range req.Points {
		if err := p.Validate(); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	path, err := h.Export.Export(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"path": path})
}
