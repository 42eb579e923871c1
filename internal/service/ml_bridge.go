package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

// MLBridge handles communication with the Python detection/tracking service
type MLBridge struct {
	serviceURL string
	httpClient *http.Client
}

// NewMLBridge creates a new ML bridge
func NewMLBridge(serviceURL string) *MLBridge {
	return &MLBridge{
		serviceURL: serviceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type trackRequest struct {
	Frame int    `json:"frame"`
	Image []byte `json:"image"`
}

type trackResponse struct {
	Objects []domain.TrackedObservation `json:"objects"`
}

// Track sends the frame to the tracking service, which keeps per-stream
// track state so ids persist across calls.
func (b *MLBridge) Track(ctx context.Context, frame domain.Frame) ([]domain.TrackedObservation, error) {
	body, err := json.Marshal(trackRequest{Frame: frame.Index, Image: frame.Image})
	if err != nil {
		return nil, fmt.Errorf("ml_bridge: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/track", b.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ml_bridge: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ml_bridge: track request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ml_bridge: track returned status %d", resp.StatusCode)
	}

	var tr trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("ml_bridge: failed to decode response: %w", err)
	}

	return tr.Objects, nil
}

// Health checks ML service connectivity
func (b *MLBridge) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("ml_bridge: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ml_bridge: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml_bridge: health check returned status %d", resp.StatusCode)
	}

	return nil
}

// ReplayTracker returns the observations recorded in the frame itself
type ReplayTracker struct{}

// Track returns frame.Observations
func (ReplayTracker) Track(_ context.Context, frame domain.Frame) ([]domain.TrackedObservation, error) {
	return frame.Observations, nil
}
