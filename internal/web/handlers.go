package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/piipreview/internal/logging"
	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/JonMunkholm/piipreview/internal/sheet"
	"github.com/JonMunkholm/piipreview/internal/web/views"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an add-files form is held in memory before
// spilling parts to temp files.
const multipartMemory = 32 << 20

var errNoFileProvided = errors.New("no file provided")

// handleUpload renders the upload view. Returning here discards any result
// handed to the results view.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.clearResult()
	s.renderUpload(w, r, sess, http.StatusOK, nil)
}

// renderUpload renders the upload view for sess, with an optional alert.
func (s *Server) renderUpload(w http.ResponseWriter, r *http.Request, sess *session, statusCode int, alert *pii.UserMessage) {
	snap := sess.coord.Snapshot()
	s.render(w, r, statusCode, views.UploadPage(views.UploadParams{
		Files:     snap.Files,
		Busy:      snap.Busy,
		CanSubmit: snap.CanSubmit,
		MaxSize:   s.cfg.Upload.MaxFileSize,
		Alert:     alert,
	}))
}

// handleAddFiles appends every file posted under the "files" field to the
// selection, in the order received.
func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondUploadError(w, r, sess, err, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondUploadError(w, r, sess, fmt.Errorf("invalid form: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondUploadError(w, r, sess, errNoFileProvided, http.StatusBadRequest)
		return
	}

	files := make([]pii.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh)
		if err != nil {
			s.respondUploadError(w, r, sess, err, http.StatusBadRequest)
			return
		}
		files = append(files, f)
	}

	if err := sess.coord.AddWithin(s.cfg.Upload.MaxSelectionSize, files...); err != nil {
		s.respondUploadError(w, r, sess, err, selectionStatus(err, http.StatusRequestEntityTooLarge))
		return
	}

	logging.FromContext(r.Context()).Debug("files added",
		"files", len(files),
		"selected", len(sess.coord.Files()),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// readPart loads one uploaded file into memory.
func readPart(fh *multipart.FileHeader) (pii.File, error) {
	src, err := fh.Open()
	if err != nil {
		return pii.File{}, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return pii.File{}, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	return pii.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// handleRemoveFile removes the selected file at the path index.
func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		index = -1
	}
	if err := sess.coord.Remove(index); err != nil {
		s.respondUploadError(w, r, sess, err, selectionStatus(err, http.StatusBadRequest))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// selectionStatus is 409 for a selection change refused during an
// extraction, else fallback.
func selectionStatus(err error, fallback int) int {
	if errors.Is(err, pii.ErrBusy) {
		return http.StatusConflict
	}
	return fallback
}

// handleExtract submits the selection and hands the response to the
// results view. The outbound call is detached from the browser request so
// a closed tab does not cancel it.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	resp, err := sess.coord.Submit(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, pii.ErrNothingSelected), errors.Is(err, pii.ErrBusy):
		// Guard failed; nothing to do.
		if wantsJSON(r) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case err != nil:
		s.respondUploadError(w, r, sess, err, http.StatusBadGateway)
		return
	}

	sess.setResult(resp)
	logging.FromContext(r.Context()).Info("extraction handed off", "rows", resp.Len())

	if wantsJSON(r) {
		writeJSON(w, resp)
		return
	}
	http.Redirect(w, r, "/results", http.StatusSeeOther)
}

// handleResults renders the handed-off rows. Without a result it renders
// an empty table.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	var rows []pii.Row
	if resp := sessionFrom(r.Context()).Result(); resp != nil {
		rows = resp.Rows
	}
	s.render(w, r, http.StatusOK, views.ResultsPage(rows))
}

// handleExport downloads the handed-off rows. Zero rows is a no-op (204).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := sheet.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var rows []pii.Row
	if resp := sessionFrom(r.Context()).Result(); resp != nil {
		rows = resp.Rows
	}

	exp, err := sheet.Build(format, rows)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("export %s: %w", format, err), http.StatusInternalServerError)
		return
	}
	if exp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exp.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	if _, err := w.Write(exp.Data); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "format", format, "error", err)
	}
}

// HealthStatus is the /healthz payload.
type HealthStatus struct {
	Status    string           `json:"status"`
	Sessions  int              `json:"sessions"`
	Extractor *ExtractorStatus `json:"extractor,omitempty"`
}

// ExtractorStatus reports extraction slot usage.
type ExtractorStatus struct {
	URL           string `json:"url"`
	Active        int    `json:"active"`
	Available     int    `json:"available"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// handleHealth reports liveness and extraction slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := HealthStatus{
		Status:   "ok",
		Sessions: s.sessions.Len(),
	}
	if s.limiter != nil {
		st := s.limiter.Status()
		out.Extractor = &ExtractorStatus{
			URL:           s.cfg.Extractor.URL,
			Active:        st.Active,
			Available:     st.Available,
			MaxConcurrent: st.MaxConcurrent,
		}
	}
	writeJSON(w, out)
}
