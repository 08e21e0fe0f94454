package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// DefaultGitHubAPIURL is the public GitHub REST API.
const DefaultGitHubAPIURL = "https://api.github.com"

// GitHubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object; we only unmarshal the fields we need.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"` // becomes the app username
}

// GitHubRepo is one entry of GET /user/repos.
// Description and Language are null in the API for repos without them.
type GitHubRepo struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	HTMLURL     string  `json:"html_url"`
	Language    *string `json:"language"`
	Fork        bool    `json:"fork"`
	Private     bool    `json:"private"`
}

// GitHubConfig holds the OAuth App credentials.
//
// You get ClientID and ClientSecret by registering an OAuth App at:
// https://github.com/settings/developers → "OAuth Apps" → "New OAuth App"
//
// CallbackURL must match the "Authorization callback URL" you configured exactly.
// Example: "http://localhost:8080/auth/github/callback"
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string

	// APIURL defaults to DefaultGitHubAPIURL. Tests point it at an httptest server.
	APIURL string
	// Endpoint defaults to github.Endpoint.
	Endpoint oauth2.Endpoint
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow,
// and calls the GitHub REST API on the user's behalf afterwards.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Redirect the user to GitHub's authorization endpoint with our ClientID and scopes.
//  2. The user approves (or denies) the request on GitHub.
//  3. GitHub redirects back to CallbackURL with a short-lived "code".
//  4. We exchange the code for an access token (server-to-server, using ClientSecret).
//  5. We use the access token to call the GitHub API.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider creates a GitHubProvider.
//
// Only "read:user" is requested. Listing a user's public repositories needs no
// extra scope.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = github.Endpoint
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultGitHubAPIURL
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     endpoint,
		},
		apiURL: apiURL,
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When GitHub calls back, we verify the returned state matches
// our cookie. This prevents CSRF attacks where an attacker tricks your browser
// into completing an OAuth flow for their account.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for an access
// token and fetches the GitHub profile with it.
//
// The access token is returned too. The caller seals it (TokenSealer) and stores it
// so GET /api/github/repos can list the user's repositories later.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, string, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	var ghUser GitHubUser
	if err := p.getJSON(ctx, oauthToken.AccessToken, "/user", nil, &ghUser); err != nil {
		return nil, "", err
	}

	if ghUser.ID == 0 || ghUser.Login == "" {
		return nil, "", fmt.Errorf("auth: GitHub returned an invalid user (id=%d, login=%q)", ghUser.ID, ghUser.Login)
	}

	return &ghUser, oauthToken.AccessToken, nil
}

// ListPublicRepositories returns the authenticated user's public repositories,
// most recently updated first. Only the first page (100 repos) is fetched.
//
// GitHub API docs: https://docs.github.com/en/rest/repos/repos#list-repositories-for-the-authenticated-user
func (p *GitHubProvider) ListPublicRepositories(ctx context.Context, accessToken string) ([]GitHubRepo, error) {
	query := url.Values{
		"visibility": {"public"},
		"sort":       {"updated"},
		"per_page":   {"100"},
	}

	var repos []GitHubRepo
	if err := p.getJSON(ctx, accessToken, "/user/repos", query, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// getJSON performs an authenticated GET against the GitHub API and decodes the body.
//
// oauth2.NewClient returns an *http.Client that adds "Authorization: Bearer <token>"
// to every request.
func (p *GitHubProvider) getJSON(ctx context.Context, accessToken, path string, query url.Values, out any) error {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	target := p.apiURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("auth: building GitHub request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling GitHub %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: GitHub %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decoding GitHub %s response: %w", path, err)
	}
	return nil
}
