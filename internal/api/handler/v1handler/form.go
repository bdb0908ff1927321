package v1handler

import (
	"agroscan/internal/submission"
	"agroscan/pkg/domain"
	"agroscan/pkg/logger"
	"agroscan/pkg/serrors"
	"bytes"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// maxFormMemory is how much of a multipart upload is kept in memory before
// spilling to temporary files.
const maxFormMemory = 32 << 20

// page is the view model of templates/index.html.
type page struct {
	Method string
	URL    string
	Error  string
	Result string
}

func (h Handler) render(w http.ResponseWriter, r *http.Request, status int, p page) {
	var buf bytes.Buffer
	if err := h.page.Execute(&buf, p); err != nil {
		logger.Error(r.Context(), "could not render page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Index serves the detection form on GET and processes it on POST. The input
// method is picked with the "method" value (upload or url), both as a query
// parameter when switching tabs and as a form field when submitting.
func (h Handler) Index(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		method, err := domain.ParseInputMethod(r.URL.Query().Get("method"))
		if err != nil {
			method = domain.MethodUpload
		}
		h.render(w, r, http.StatusOK, page{Method: string(method)})
	case http.MethodPost:
		h.submit(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		status, msg := h.NewError(ctx, serrors.Wrap(serrors.ErrBadRequest, err, submission.MsgMissingInput), "")
		h.render(w, r, status, page{Method: string(domain.MethodUpload), Error: msg})

		return
	}

	method, err := domain.ParseInputMethod(r.FormValue("method"))
	if err != nil {
		method = domain.MethodUpload
	}
	p := page{Method: string(method), URL: r.FormValue("url")}

	sub := submission.Submission{Method: method, ImageURL: p.URL}
	if method == domain.MethodUpload {
		sub.ImageDataURI, err = readUpload(r)
		if err != nil {
			status, msg := h.NewError(ctx, err, submission.MsgProcessing)
			p.Error = msg
			h.render(w, r, status, p)

			return
		}
	}

	res, err := h.deps.Submission.Submit(ctx, sub)
	if err != nil {
		status, msg := h.NewError(ctx, err, submission.MsgProcessing)
		p.Error = msg
		h.render(w, r, status, p)

		return
	}

	pretty, err := res.Pretty()
	if err != nil {
		pretty = string(res)
	}
	p.Result = pretty
	h.render(w, r, http.StatusOK, p)
}

// readUpload returns the "file" form field as a data URI, or "" when no file
// was sent.
func readUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}

		return "", serrors.Wrap(serrors.ErrBadRequest, err, submission.MsgInvalidFile)
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, err, submission.MsgInvalidFile)
	}
	if len(data) == 0 {
		return "", nil
	}

	return submission.FromFile(header.Header.Get("Content-Type"), data)
}
