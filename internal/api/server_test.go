package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/lz9168/shaka-packager/internal/logger"
)

func newTestEcho(maxBody int64) *echo.Echo {
	e := echo.New()
	NewServer(logger.Default(), maxBody).Register(e)
	return e
}

func doInspect(t *testing.T, e *echo.Echo, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func box(typ string, payload ...byte) []byte {
	b := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(b, uint32(len(b)))
	copy(b[4:], typ)
	copy(b[8:], payload)
	return b
}

func TestInspectReturnsTree(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	body := append(box("ftyp", []byte("isom")...), box("moov", box("mvhd")...)...)
	rec := doInspect(t, e, "/v1/inspect", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp inspectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "insp_") {
		t.Fatalf("unexpected id %q", resp.ID)
	}
	if len(resp.Boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(resp.Boxes))
	}
	if resp.Boxes[1].Type != "moov" || len(resp.Boxes[1].Children) != 1 {
		t.Fatalf("moov node = %+v", resp.Boxes[1])
	}
}

func TestInspectTopLevelOnly(t *testing.T) {
	t.Parallel()

	e := newTestEcho(0)
	rec := doInspect(t, e, "/v1/inspect?depth=top", box("moov", box("mvhd")...))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp inspectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Boxes) != 1 || resp.Boxes[0].Children != nil {
		t.Fatalf("boxes = %+v", resp.Boxes)
	}
}

func TestInspectEmptyBody(t *testing.T) {
	t.Parallel()

	rec := doInspect(t, newTestEcho(0), "/v1/inspect", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid_request_error") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestInspectMalformedMedia(t *testing.T) {
	t.Parallel()

	bad := make([]byte, 16)
	copy(bad[4:], "moov") // size32 == 0 runs to end of stream
	rec := doInspect(t, newTestEcho(0), "/v1/inspect", bad)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "malformed_media") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestInspectTruncatedMedia(t *testing.T) {
	t.Parallel()

	rec := doInspect(t, newTestEcho(0), "/v1/inspect", box("moov", make([]byte, 40)...)[:20])
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "truncated_media") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestInspectBodyTooLarge(t *testing.T) {
	t.Parallel()

	e := newTestEcho(16)
	rec := doInspect(t, e, "/v1/inspect", box("free", make([]byte, 64)...))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "payload_too_large") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	newTestEcho(0).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
