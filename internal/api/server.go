// Package api exposes box inspection over HTTP. A client POSTs a media
// buffer and receives its box tree; malformed and truncated input are
// reported as distinct error types so callers can tell a broken file from
// one that simply needs more bytes.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/lz9168/shaka-packager/internal/inspect"
	"github.com/lz9168/shaka-packager/internal/logger"
	"github.com/lz9168/shaka-packager/pkg/mp4"
)

// DefaultMaxBodySize bounds uploaded media buffers. Inspection only needs
// headers and metadata boxes, so callers with large files should trim the
// mdat payload before uploading.
const DefaultMaxBodySize = 64 << 20

type Server struct {
	log         logger.Logger
	maxBodySize int64
	clock       func() time.Time
}

func NewServer(log logger.Logger, maxBodySize int64) *Server {
	if log == nil {
		log = logger.Default()
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Server{
		log:         log,
		maxBodySize: maxBodySize,
		clock:       time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/inspect", s.handleInspect)
	e.GET("/healthz", s.handleHealth)
}

type inspectResponse struct {
	ID        string          `json:"id"`
	CreatedAt int64           `json:"created_at"`
	Boxes     []*inspect.Node `json:"boxes"`
}

func (s *Server) handleInspect(c *echo.Context) error {
	req := c.Request()
	if req.ContentLength > s.maxBodySize {
		return writeError(c, http.StatusRequestEntityTooLarge, "payload_too_large",
			"request body exceeds inspection limit")
	}
	data, err := io.ReadAll(io.LimitReader(req.Body, s.maxBodySize+1))
	if err != nil {
		return writeBadRequest(c, "reading request body: "+err.Error())
	}
	if int64(len(data)) > s.maxBodySize {
		return writeError(c, http.StatusRequestEntityTooLarge, "payload_too_large",
			"request body exceeds inspection limit")
	}
	if len(data) == 0 {
		return writeBadRequest(c, "request body is empty")
	}

	var nodes []*inspect.Node
	if c.QueryParam("depth") == "top" {
		nodes, err = inspect.TopLevel(data)
	} else {
		nodes, err = inspect.Tree(data)
	}
	if err != nil {
		s.log.Warn("inspection failed", "error", err, "bytes", len(data))
		switch {
		case errors.Is(err, mp4.ErrNotEnoughData):
			return writeError(c, http.StatusUnprocessableEntity, "truncated_media", err.Error())
		case errors.Is(err, mp4.ErrMalformed):
			return writeError(c, http.StatusUnprocessableEntity, "malformed_media", err.Error())
		default:
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
		}
	}

	return c.JSON(http.StatusOK, inspectResponse{
		ID:        "insp_" + uuid.NewString(),
		CreatedAt: s.clock().Unix(),
		Boxes:     nodes,
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
