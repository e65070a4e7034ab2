package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSON_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"id": 7})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
		Error   *APIError      `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data["id"] != 7 || body.Error != nil {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "m") }, http.StatusBadRequest, "BAD_REQUEST"},
		{"validation", func(w http.ResponseWriter) { ValidationFailed(w, "m") }, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "m") }, http.StatusForbidden, "FORBIDDEN"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "m") }, http.StatusConflict, "CONFLICT"},
		{"rate limited", func(w http.ResponseWriter) { TooManyRequests(w, "m") }, http.StatusTooManyRequests, "RATE_LIMITED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body APIResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Error == nil || body.Error.Code != tt.code || body.Error.Message != "m" {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(2, 20, 41)
	if m.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", m.TotalPages)
	}
	if NewMeta(1, 20, 0).TotalPages != 0 {
		t.Error("empty result should have zero pages")
	}
}
