package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
)

// HTTPProvider talks to a sentence-embedding inference sidecar. The model is
// loaded once per process on first use; a preferred compute device that fails
// to initialize falls back to the sidecar default before the load is treated
// as fatal.
type HTTPProvider struct {
	BaseURL   string
	ModelName string
	Dimension int
	Device    string
	Client    *http.Client

	loadOnce sync.Once
	loadErr  error
}

type loadRequest struct {
	Model  string `json:"model"`
	Device string `json:"device,omitempty"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Vectors [][]float64 `json:"vectors"`
	Dim     int         `json:"dim"`
}

func (p *HTTPProvider) Model() string { return p.ModelName }
func (p *HTTPProvider) Dim() int      { return p.Dimension }

func (p *HTTPProvider) client() *http.Client {
	if p.Client == nil {
		p.Client = &http.Client{Timeout: 60 * time.Second}
	}
	return p.Client
}

// ensureLoaded performs the guarded one-time model load. A failed load is
// sticky: every subsequent Embed call propagates the same fatal error.
func (p *HTTPProvider) ensureLoaded(ctx context.Context) error {
	p.loadOnce.Do(func() {
		if err := p.load(ctx, p.Device); err != nil {
			if p.Device == "" {
				p.loadErr = err
				return
			}
			// Preferred device unavailable; retry on the default device.
			if err2 := p.load(ctx, ""); err2 != nil {
				p.loadErr = fmt.Errorf("load model %s: %w", p.ModelName, err2)
			}
		}
	})
	return p.loadErr
}

func (p *HTTPProvider) load(ctx context.Context, device string) error {
	b, _ := json.Marshal(loadRequest{Model: p.ModelName, Device: device})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.BaseURL, "/")+"/load", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client().Do(req)
	if err != nil {
		return wrapNetErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("embedding model load failed: %s", resp.Status)
	}
	return nil
}

func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	b, _ := json.Marshal(embedRequest{Model: p.ModelName, Texts: texts})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.BaseURL, "/")+"/embed", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, wrapNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service error: %s", resp.Status)
	}

	var r embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}
	if len(r.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(r.Vectors), len(texts))
	}
	for _, v := range r.Vectors {
		Normalize(v)
	}
	return r.Vectors, nil
}

// Normalize scales v to unit L2 length in place. Zero vectors are left
// untouched.
func Normalize(v []float64) {
	n := floats.Norm(v, 2)
	if n == 0 {
		return
	}
	floats.Scale(1/n, v)
}

func wrapNetErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("embedding request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("embedding request timed out")
	}
	return fmt.Errorf("embedding request failed: %w", err)
}
