package v1handler_test

import (
	"agroscan/internal/submission"
	"agroscan/pkg/detector"
	"agroscan/pkg/domain"
	"agroscan/pkg/serrors"
	"bytes"
	"context"
	"html"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}

func postUpload(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("method", "upload"))

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="pitaya.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestIndex_Get(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.Contains(t, body, `name="file"`)
	require.NotContains(t, body, `name="url"`)
	require.NotContains(t, body, "Detection results")
}

func TestIndex_GetURLTab(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/?method=url", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `name="url"`)
	require.NotContains(t, rec.Body.String(), `name="file"`)
}

func TestIndex_RejectsOtherMethods(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodDelete, "/", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, HEAD, POST", rec.Header().Get("Allow"))
}

func TestIndex_SubmitURL(t *testing.T) {
	h, client := newHandler(t)
	client.EXPECT().
		Query(gomock.Any(), detector.Input{ImageURL: "https://example.com/pitaya.jpg"}).
		Return(domain.RawResult(`{"predictions":[{"class":"glass"}]}`), nil)

	rec := httptest.NewRecorder()
	h.Index(rec, postForm(url.Values{"method": {"url"}, "url": {"https://example.com/pitaya.jpg"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := html.UnescapeString(rec.Body.String())
	require.Contains(t, body, "Detection results")
	require.Contains(t, body, "\"predictions\": [\n    {\n      \"class\": \"glass\"")
	require.Contains(t, body, `value="https://example.com/pitaya.jpg"`)
}

func TestIndex_MissingInput(t *testing.T) {
	cases := []url.Values{
		{"method": {"url"}},
		{"method": {"url"}, "url": {"   "}},
		{"method": {"upload"}},
		{},
	}

	for _, values := range cases {
		h, _ := newHandler(t) // no EXPECT: any upstream call fails the test

		rec := httptest.NewRecorder()
		h.Index(rec, postForm(values))

		require.Equal(t, http.StatusBadRequest, rec.Code, values.Encode())
		require.Contains(t, rec.Body.String(), submission.MsgMissingInput)
		require.NotContains(t, rec.Body.String(), "Detection results")
	}
}

func TestIndex_SubmitUpload(t *testing.T) {
	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, image.NewGray(image.Rect(0, 0, 40, 20))))

	h, client := newHandler(t)
	client.EXPECT().
		Query(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in detector.Input) (domain.RawResult, error) {
			require.True(t, strings.HasPrefix(in.Image, "data:image/jpeg;base64,"))
			require.Empty(t, in.ImageURL)

			return domain.RawResult(`{"predictions":[]}`), nil
		})

	rec := httptest.NewRecorder()
	h.Index(rec, postUpload(t, "image/png", raw.Bytes()))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Detection results")
}

func TestIndex_UploadNotAnImage(t *testing.T) {
	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.Index(rec, postUpload(t, "text/plain", []byte("hello there")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), submission.MsgInvalidFile)
}

func TestIndex_UpstreamFailure(t *testing.T) {
	h, client := newHandler(t)
	client.EXPECT().
		Query(gomock.Any(), gomock.Any()).
		Return(nil, serrors.With(serrors.ErrUnauthorized, "rejected credentials: secret detail"))

	rec := httptest.NewRecorder()
	h.Index(rec, postForm(url.Values{"method": {"url"}, "url": {"https://example.com/a.jpg"}}))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), submission.MsgProcessing)
	require.NotContains(t, rec.Body.String(), "secret detail")
}
