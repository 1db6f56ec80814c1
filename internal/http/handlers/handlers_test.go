package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestVerticalsListReturnsCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{Logger: zerolog.Nop()}

	r := gin.New()
	r.GET("/api/verticals", h.VerticalsList)

	req, _ := http.NewRequest(http.MethodGet, "/api/verticals", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Count int `json:"count"`
		Items []struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 18 || len(body.Items) != 18 {
		t.Fatalf("expected 18 catalog entries, got %d", body.Count)
	}
	if body.Items[0].Slug == "" || body.Items[0].Name == "" {
		t.Fatalf("expected slug and name populated, got %+v", body.Items[0])
	}
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{Logger: zerolog.Nop()}

	r := gin.New()
	r.POST("/api/ask", h.Ask)

	req, _ := http.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "INVALID_REQUEST") {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
}
