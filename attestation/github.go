package attestation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/package-registry/interfaces"
	"github.com/ruteri/package-registry/metrics"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// GitHubUser is the subset of a GitHub user profile the oracle reads.
type GitHubUser struct {
	Login string  `json:"login"`
	Bio   *string `json:"bio"`
}

// GitHubProfileFetcher reads user bios through the GitHub REST API.
type GitHubProfileFetcher struct {
	baseURL string
	token   string
	client  *http.Client
	log     *slog.Logger
}

// NewGitHubProfileFetcher creates a fetcher for baseURL (DefaultGitHubAPI
// when empty). An empty token sends unauthenticated requests.
func NewGitHubProfileFetcher(baseURL, token string, log *slog.Logger) *GitHubProfileFetcher {
	if baseURL == "" {
		baseURL = DefaultGitHubAPI
	}
	return &GitHubProfileFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// FetchProfile returns the bio of handle. A user without a bio has an empty
// profile; an unknown user is reported with found=false.
func (f *GitHubProfileFetcher) FetchProfile(ctx context.Context, handle string) (string, bool, error) {
	start := time.Now()
	defer func() { metrics.ObserveProfileFetch(time.Since(start)) }()

	endpoint := fmt.Sprintf("%s/users/%s", f.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to create request: %w", interfaces.ErrTransport, err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "Github Oracle")
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		f.log.Debug("GitHub user not found", slog.String("handle", handle))
		return "", false, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", false, fmt.Errorf("%w: GitHub API error: %s, %s", interfaces.ErrTransport, resp.Status, strings.TrimSpace(string(body)))
	}

	var user GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", false, fmt.Errorf("%w: failed to decode user: %w", interfaces.ErrTransport, err)
	}

	f.log.Debug("Fetched GitHub profile",
		slog.String("handle", handle),
		slog.Duration("duration", time.Since(start)))

	if user.Bio == nil {
		return "", true, nil
	}
	return *user.Bio, true, nil
}
