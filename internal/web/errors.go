package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted as JSON or as an HTML page with a blocking alert
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via pii.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered in appropriate format for the client

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/piipreview/internal/logging"
	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/JonMunkholm/piipreview/internal/web/views"
	"github.com/a-h/templ"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := s.logError(r, err, statusCode)

	if wantsJSON(r) {
		respondErrorJSON(w, msg, statusCode)
		return
	}
	s.render(w, r, statusCode, views.ErrorPage(msg.Message, msg.Action, msg.Code))
}

// respondUploadError re-renders the upload view with the error as a
// blocking alert, so the user keeps their selection and can retry.
func (s *Server) respondUploadError(w http.ResponseWriter, r *http.Request, sess *session, err error, statusCode int) {
	msg := s.logError(r, err, statusCode)

	if wantsJSON(r) {
		respondErrorJSON(w, msg, statusCode)
		return
	}
	s.renderUpload(w, r, sess, statusCode, &msg)
}

// logError logs the technical error and returns its user message.
func (s *Server) logError(r *http.Request, err error, statusCode int) pii.UserMessage {
	msg := pii.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"status", statusCode,
		"error", err,
		"code", msg.Code,
	)
	return msg
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg pii.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// render writes a component as an HTML response with the given status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, statusCode int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(statusCode)).ServeHTTP(w, r)
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return false
}
