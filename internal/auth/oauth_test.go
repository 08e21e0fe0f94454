package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and the two API calls GitHubProvider makes.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_test",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 583231, "login": "octocat"})
	})
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "public", r.URL.Query().Get("visibility"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "hello-world", "full_name": "octocat/hello-world",
			 "description": "My first repo", "html_url": "https://github.com/octocat/hello-world",
			 "language": "Go", "fork": false, "private": false},
			{"id": 2, "name": "dotfiles", "full_name": "octocat/dotfiles",
			 "description": null, "html_url": "https://github.com/octocat/dotfiles",
			 "language": null, "fork": true, "private": false}
		]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GitHubProvider {
	return NewGitHubProvider(GitHubConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost/auth/github/callback",
		APIURL:       srv.URL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	})
}

func TestAuthURL_CarriesState(t *testing.T) {
	p := NewGitHubProvider(GitHubConfig{ClientID: "client", CallbackURL: "http://localhost/cb"})

	u := p.AuthURL("state-123")

	assert.True(t, strings.HasPrefix(u, "https://github.com/login/oauth/authorize"))
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client")
}

func TestExchange(t *testing.T) {
	srv := fakeGitHub(t)
	p := newTestProvider(srv)

	user, token, err := p.Exchange(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Equal(t, int64(583231), user.ID)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "gho_test", token)
}

func TestExchange_BadCode(t *testing.T) {
	srv := fakeGitHub(t)
	p := newTestProvider(srv)

	_, _, err := p.Exchange(context.Background(), "bad-code")

	assert.Error(t, err)
}

func TestListPublicRepositories(t *testing.T) {
	srv := fakeGitHub(t)
	p := newTestProvider(srv)

	repos, err := p.ListPublicRepositories(context.Background(), "gho_test")

	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "octocat/hello-world", repos[0].FullName)
	require.NotNil(t, repos[0].Language)
	assert.Equal(t, "Go", *repos[0].Language)
	assert.Nil(t, repos[1].Language)
	assert.Nil(t, repos[1].Description)
}

func TestListPublicRepositories_Unauthorized(t *testing.T) {
	srv := fakeGitHub(t)
	p := newTestProvider(srv)

	_, err := p.ListPublicRepositories(context.Background(), "revoked")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
