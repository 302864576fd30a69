package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"

	"auctionhouse/internal/model"
)

// Loader reads the identity list published by the identity-management side.
type Loader struct {
	fs     afero.Fs
	client *http.Client
}

// NewLoader creates a loader reading files from fs and URLs through client.
func NewLoader(fs afero.Fs, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{fs: fs, client: client}
}

// Load fetches a JSON array of identities from an http(s) URL or a file path.
func (l *Loader) Load(ctx context.Context, source string) ([]model.Identity, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = l.fetch(ctx, source)
	} else {
		body, err = afero.ReadFile(l.fs, source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identities from %s: %w", source, err)
	}

	var identities []model.Identity
	if err := json.Unmarshal(body, &identities); err != nil {
		return nil, fmt.Errorf("failed to parse identities: %w", err)
	}

	seen := make(map[uint64]bool, len(identities))
	names := make(map[string]bool, len(identities))
	for _, id := range identities {
		if id.Username == "" {
			return nil, fmt.Errorf("identity %d has no username", id.Key)
		}
		if seen[id.Key] || names[id.Username] {
			return nil, fmt.Errorf("duplicate identity %d (%s)", id.Key, id.Username)
		}
		seen[id.Key], names[id.Username] = true, true
	}
	return identities, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
