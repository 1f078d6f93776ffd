package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default token endpoints.
const (
	ORCIDTokenURL  = "https://orcid.org/oauth/token"
	GitHubTokenURL = "https://github.com/login/oauth/access_token"
)

// ExchangerConfig configures the HTTP code exchanger.
type ExchangerConfig struct {
	ORCIDTokenURL      string
	ORCIDClientID      string
	GitHubTokenURL     string
	GitHubClientID     string
	GitHubClientSecret string
	RedirectURI        string
}

// HTTPExchanger exchanges authorization codes against the providers' token
// endpoints.
type HTTPExchanger struct {
	cfg        ExchangerConfig
	httpClient *http.Client
}

// NewHTTPExchanger creates an exchanger. Empty endpoint fields fall back to
// the provider defaults.
func NewHTTPExchanger(cfg ExchangerConfig) *HTTPExchanger {
	if cfg.ORCIDTokenURL == "" {
		cfg.ORCIDTokenURL = ORCIDTokenURL
	}
	if cfg.GitHubTokenURL == "" {
		cfg.GitHubTokenURL = GitHubTokenURL
	}
	return &HTTPExchanger{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ExchangeORCID swaps a code (plus the PKCE verifier) for an ORCID identity.
func (e *HTTPExchanger) ExchangeORCID(ctx context.Context, code, verifier string) (*Identity, error) {
	form := url.Values{
		"client_id":     {e.cfg.ORCIDClientID},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {e.cfg.RedirectURI},
		"code_verifier": {verifier},
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		Name        string `json:"name"`
		ORCID       string `json:"orcid"`
	}
	if err := e.postForm(ctx, e.cfg.ORCIDTokenURL, form, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("ORCID token endpoint returned no access token")
	}

	return &Identity{
		ID:          resp.ORCID,
		Name:        resp.Name,
		ORCID:       resp.ORCID,
		AccessToken: resp.AccessToken,
	}, nil
}

// ExchangeGitHub swaps a code for a GitHub access token.
func (e *HTTPExchanger) ExchangeGitHub(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {e.cfg.GitHubClientID},
		"client_secret": {e.cfg.GitHubClientSecret},
		"code":          {code},
		"redirect_uri":  {e.cfg.RedirectURI},
	}

	var resp struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := e.postForm(ctx, e.cfg.GitHubTokenURL, form, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("GitHub token endpoint: %s: %s", resp.Error, resp.ErrorDescription)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("GitHub token endpoint returned no access token")
	}
	return resp.AccessToken, nil
}

func (e *HTTPExchanger) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}
	return nil
}
