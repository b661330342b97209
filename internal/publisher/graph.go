package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const maxErrorBody = 512

// graphClient is the HTTP plumbing shared by the Graph API adapters.
type graphClient struct {
	baseURL string
	http    *http.Client
}

func newGraphClient(baseURL, accessToken string, timeout time.Duration) *graphClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	c := oauth2.NewClient(context.Background(), src)
	c.Timeout = timeout
	return &graphClient{baseURL: strings.TrimSuffix(baseURL, "/"), http: c}
}

type graphError struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FbtraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// graphResponse covers the id-bearing responses of the endpoints used here.
type graphResponse struct {
	ID      string `json:"id"`
	PostID  string `json:"post_id"`
	Success bool   `json:"success"`
}

func (g *graphClient) postForm(ctx context.Context, path string, form url.Values) (*graphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req)
}

func (g *graphClient) delete(ctx context.Context, path string) (*graphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	return g.do(req)
}

func (g *graphClient) do(req *http.Request) (*graphResponse, error) {
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, ge.Error.Message)
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var out graphResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("error parsing response: %w", err)
		}
	}
	return &out, nil
}
