// Package respond contains helpers for writing uniform JSON responses.
//
// Success responses carry {"status": "success", "data": ...}; client errors
// carry {"status": "fail", "message": ...} and server errors
// {"status": "error", "message": ...}.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/wb-go/wbf/zlog"
)

type successResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK writes a 200 response with the given payload.
func OK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: data})
}

// Created writes a 201 response with the given payload.
func Created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, successResponse{Status: "success", Data: data})
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Fail writes an error response. Status codes below 500 are reported as
// "fail", everything else as "error".
func Fail(w http.ResponseWriter, code int, err error) {
	status := "error"
	if code < http.StatusInternalServerError {
		status = "fail"
	}

	writeJSON(w, code, errorResponse{Status: status, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response")
	}
}
