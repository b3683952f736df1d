package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	appanalysis "github.com/bryanwahyu/aidentify/internal/application/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
	"github.com/bryanwahyu/aidentify/internal/middleware"
)

// form fields above this stay on disk instead of memory
const multipartMemory = 8 << 20

// multipart framing allowance on top of the file cap
const multipartSlack = 1 << 20

// POST /api/{kind}/analyze
// Multipart: file (required), email, mime_type, chat_id.
func (r *Router) handleAnalyze(kind media.Kind) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		if r.maxUpload > 0 {
			req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+multipartSlack)
		}
		if err := req.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return fmt.Errorf("%w: upload exceeds %d bytes", media.ErrTooLarge, r.maxUpload)
			}
			return fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
		}
		defer func() { _ = req.MultipartForm.RemoveAll() }()

		email := strings.TrimSpace(req.FormValue("email"))
		if err := middleware.ValidateEmail(email); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}

		file, header, err := req.FormFile("file")
		if err != nil {
			return fmt.Errorf("%w: file is required", errBadRequest)
		}
		defer file.Close()

		mimeType := strings.TrimSpace(req.FormValue("mime_type"))
		if mimeType == "" {
			mimeType = header.Header.Get("Content-Type")
		}

		res, err := r.analysis.Analyze(req.Context(), appanalysis.AnalyzeCommand{
			Email:    email,
			Kind:     kind,
			MIMEType: mimeType,
			ChatID:   req.FormValue("chat_id"),
			FileName: middleware.SanitizeString(header.Filename),
			Body:     file,
		})
		if err != nil {
			return err
		}

		if res.Result != nil {
			writeJSON(w, http.StatusOK, res.Result)
			return nil
		}
		writeJSON(w, http.StatusOK, res)
		return nil
	}
}
