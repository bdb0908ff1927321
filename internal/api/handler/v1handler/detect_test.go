package v1handler_test

import (
	"agroscan/internal/api/handler/v1handler"
	"agroscan/pkg/detector"
	"agroscan/pkg/domain"
	"agroscan/pkg/serrors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// upstream payload with formatting that must survive the passthrough untouched
const upstream = "{\"time\": 0.05,\n \"predictions\": [ {\"class\": \"glass\", \"confidence\": 0.93} ]}"

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func TestDetect_RejectsNonPost(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		h, _ := newHandler(t) // no EXPECT: any upstream call fails the test

		rec := httptest.NewRecorder()
		h.Detect(rec, httptest.NewRequest(method, "/api/detect", nil))

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		require.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
		require.JSONEq(t, `{"message":"method not allowed"}`, rec.Body.String())
	}
}

func TestDetect_ReturnsUpstreamVerbatim(t *testing.T) {
	h, client := newHandler(t)
	client.EXPECT().
		Forward(gomock.Any(), detector.Input{ImageURL: "https://example.com/a.jpg"}).
		Return(domain.RawResult(upstream), nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/detect",
		strings.NewReader(`{"image_url":"https://example.com/a.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	h.Detect(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, upstream, rec.Body.String())
}

func TestDetect_ForwardsInlineImage(t *testing.T) {
	h, client := newHandler(t)
	client.EXPECT().
		Forward(gomock.Any(), detector.Input{Image: "aGVsbG8="}).
		Return(domain.RawResult(`{}`), nil)

	rec := httptest.NewRecorder()
	h.Detect(rec, httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(`{"image":"aGVsbG8="}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{}`, rec.Body.String())
}

func TestDetect_UpstreamFailureIsGeneric500(t *testing.T) {
	for _, cause := range []error{
		serrors.With(serrors.ErrRateLimited, "rate limited: slow down"),
		serrors.With(serrors.ErrUnauthorized, "rejected credentials: bad key"),
		serrors.With(serrors.ErrUnavailable, "could not send request"),
	} {
		h, client := newHandler(t)
		client.EXPECT().Forward(gomock.Any(), gomock.Any()).Return(nil, cause)

		rec := httptest.NewRecorder()
		h.Detect(rec, httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(`{"image":"x"}`)))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{"message":"error processing image"}`, rec.Body.String())
		require.NotContains(t, rec.Body.String(), cause.Error())
	}
}

func TestDetect_InvalidBodyIsGeneric500WithoutCall(t *testing.T) {
	for _, body := range []string{``, `{}`, `not json`, `{"image":""}`, `{"image":7}`} {
		h, _ := newHandler(t)

		rec := httptest.NewRecorder()
		h.Detect(rec, httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(body)))

		require.Equal(t, http.StatusInternalServerError, rec.Code, body)
		require.JSONEq(t, `{"message":"`+v1handler.MsgProcessing+`"}`, rec.Body.String())
	}
}
