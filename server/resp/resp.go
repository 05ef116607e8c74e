package resp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the JSON error body used by the authenticated API
// surface.
type ErrorResponse struct {
	Message string `json:"message"`
}

// UploadResponse mirrors the browser uploader contract: status 1 on
// success with the served URL, status 0 with a reason otherwise.
type UploadResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DeleteResponse reports a deletion outcome. Success stays true even when
// the remote copy could not be removed; Message carries the detail.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteOK(w http.ResponseWriter, object any) {
	WriteJSON(w, http.StatusOK, object)
}

func WriteUploadOK(w http.ResponseWriter, url string) {
	WriteJSON(w, http.StatusOK, UploadResponse{Status: 1, Msg: "upload ok", URL: url})
}

func WriteUploadError(w http.ResponseWriter, status int, msg string, err error) {
	out := UploadResponse{Status: 0, Msg: msg}
	if err != nil {
		out.Error = err.Error()
	}

	WriteJSON(w, status, out)
}

func WriteHttpError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// WritePlainError is for the anonymous delivery surface, which answers in
// plain text rather than JSON.
func WritePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, message)
}

func WriteJSON(w http.ResponseWriter, status int, object any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if object == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(object); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write HTTP response: %v", err), http.StatusInternalServerError)
	}
}
