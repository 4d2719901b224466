package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hostkita/panelstore/internal/apperrors"
)

// BinStore talks to a remote JSON document service. The document version
// travels in the X-Doc-Version response header and is echoed back in
// If-Match on writes; the service answers 412 when the token is stale.
type BinStore struct {
	baseURL    string
	binID      string
	apiKey     string
	httpClient *http.Client
}

// NewBinStore creates a remote document store client.
func NewBinStore(baseURL, binID, apiKey string) *BinStore {
	return &BinStore{
		baseURL: baseURL,
		binID:   binID,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *BinStore) url() string {
	return s.baseURL + "/bins/" + s.binID
}

// Read fetches the document and its version token.
func (s *BinStore) Read(ctx context.Context) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Master-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindUpstreamTimeout, "document store read", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, VersionNone, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("document store returned status %d: %s", resp.StatusCode, body)
	}

	version := resp.Header.Get("X-Doc-Version")
	if version == "" {
		version = VersionNone
	}
	return body, version, nil
}

// Write replaces the document, guarded by the version token.
func (s *BinStore) Write(ctx context.Context, data []byte, version string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url(), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Master-Key", s.apiKey)
	req.Header.Set("If-Match", version)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUpstreamTimeout, "document store write", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		newVersion := resp.Header.Get("X-Doc-Version")
		if newVersion == "" {
			newVersion = version
		}
		return newVersion, nil
	case http.StatusPreconditionFailed, http.StatusConflict:
		return "", ErrVersionConflict
	default:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("document store returned status %d: %s", resp.StatusCode, body)
	}
}
