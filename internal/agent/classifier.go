package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Detection is one labeled object found in a frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier is an object-detection model over webcam frames.
type Classifier interface {
	Ready(ctx context.Context) bool
	Detect(ctx context.Context, frame []byte) ([]Detection, error)
}

// FrameSource produces webcam frames.
type FrameSource interface {
	Ready(ctx context.Context) bool
	Capture(ctx context.Context) ([]byte, error)
}

// HTTPClassifier talks to a detection sidecar: GET /ready for readiness,
// POST /detect with a JPEG body for inference.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClassifier(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClassifier) Ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *HTTPClassifier) Detect(ctx context.Context, frame []byte) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Detections []Detection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return body.Detections, nil
}

// HTTPFrameSource pulls JPEG snapshots from a local capture endpoint.
type HTTPFrameSource struct {
	url    string
	client *http.Client
}

func NewHTTPFrameSource(url string) *HTTPFrameSource {
	return &HTTPFrameSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *HTTPFrameSource) Ready(ctx context.Context) bool {
	frame, err := f.Capture(ctx)
	return err == nil && len(frame) > 0
}

func (f *HTTPFrameSource) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build capture request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
