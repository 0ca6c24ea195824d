package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/gemini"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/session"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/store"
)

// uploadField is the multipart field holding the image.
const uploadField = "image"

// RemoveResponse is returned by POST /api/remove.
type RemoveResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	MIMEType    string `json:"mime_type"`
	DownloadURL string `json:"download_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRemove(c echo.Context) error {
	logger := requestLogger(c)

	fh, err := c.FormFile(uploadField)
	if err != nil {
		if tooLarge(err) {
			return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "image is too large"})
		}
		return c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("multipart field %q with an image is required", uploadField)})
	}
	if fh.Size > s.maxUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "image is too large"})
	}
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, s.maxUpload+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "image is too large"})
	}

	file := media.FromUpload(fh.Filename, fh.Header.Get(echo.HeaderContentType), data)
	if !media.IsImage(file.MIMEType) {
		return c.JSON(http.StatusUnsupportedMediaType, errorResponse{Error: session.ErrNotImage.Error()})
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		s.reg.Inc(c.Request().Context(), "removals_total", map[string]string{"outcome": "busy"}, 1)
		return c.JSON(http.StatusConflict, errorResponse{Error: session.ErrBusy.Error()})
	}

	ctrl := session.New(session.Options{
		Remover:  s.remover,
		Previews: s.previews,
		Metrics:  s.reg,
		Logger:   logger,
	})
	defer ctrl.Close()

	snap, err := ctrl.Process(c.Request().Context(), file)
	if err != nil {
		status, msg := classify(err)
		return c.JSON(status, errorResponse{Error: msg})
	}
	if snap.State != session.StateResult {
		status, msg := classify(snap.Failure)
		s.reg.Inc(c.Request().Context(), "removals_total", map[string]string{"outcome": "error"}, 1)
		logger.Warnw("removal failed", "file", file.Name, "status", status, "error", snap.Failure)
		if status != http.StatusInternalServerError {
			msg = snap.Err
		}
		return c.JSON(status, errorResponse{Error: msg})
	}

	var png bytes.Buffer
	if err := media.Encode(&png, snap.Processed, media.FormatPNG); err != nil {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "the model returned an unreadable image"})
	}
	name := media.OutputName(file.Name, media.FormatPNG)
	handle, err := s.results.Save(c.Request().Context(), store.Entry{
		Name:     name,
		MIMEType: media.FormatPNG.MIMEType(),
		Data:     png.Bytes(),
	}, s.resultTTL)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	s.reg.Inc(c.Request().Context(), "removals_total", map[string]string{"outcome": "result"}, 1)
	logger.Infow("removal served", "file", file.Name, "result_id", handle.ID(), "bytes", png.Len())

	return c.JSON(http.StatusOK, RemoveResponse{
		ID:          handle.ID(),
		Filename:    name,
		MIMEType:    media.FormatPNG.MIMEType(),
		DownloadURL: "/api/results/" + handle.ID(),
	})
}

func (s *Server) handleResult(c echo.Context) error {
	entry, ok := s.results.Get(c.Request().Context(), c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "result not found or expired"})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, attachment(entry.Name))
	return c.Blob(http.StatusOK, entry.MIMEType, entry.Data)
}

// attachment builds a Content-Disposition value. Non-ASCII names use the
// RFC 2231 filename* form.
func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

func (s *Server) handleDeleteResult(c echo.Context) error {
	id := c.Param("id")
	if _, ok := s.results.Get(c.Request().Context(), id); !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "result not found or expired"})
	}
	if err := s.results.Delete(c.Request().Context(), id); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// tooLarge reports whether err came from the body limit cutting off an upload
// that declared no Content-Length.
func tooLarge(err error) bool {
	var he *echo.HTTPError
	return errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge
}

// classify maps a removal failure to an HTTP status and client message.
// Credential problems are reported without detail.
func classify(err error) (int, string) {
	var missing *gemini.MissingCredentialError
	var refusal *gemini.RefusalError
	switch {
	case err == nil:
		return http.StatusBadGateway, session.FallbackMessage
	case errors.As(err, &missing), errors.Is(err, gemini.ErrMissingCredential):
		return http.StatusInternalServerError, "server is misconfigured"
	case errors.Is(err, gemini.ErrNotImage):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict, err.Error()
	case errors.As(err, &refusal), errors.Is(err, gemini.ErrNoImage):
		return http.StatusUnprocessableEntity, session.ErrorMessage(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusBadGateway, session.ErrorMessage(err)
	}
}
