package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/logging"
)

func TestLocalRedirect(t *testing.T) {
	log := logging.Discard()
	cases := map[string]string{
		"":                                   "http://localhost:6789/oauth2callback",
		"urn:ietf:wg:oauth:2.0:oob":          "http://localhost:6789/oauth2callback",
		"http://localhost":                   "http://localhost:6789",
		"http://localhost:8080/cb":           "http://localhost:6789/cb",
		"http://127.0.0.1:6789/cb":           "http://127.0.0.1:6789/cb",
		"https://example.com/oauth2callback": "https://example.com/oauth2callback",
	}
	for in, want := range cases {
		assert.Equal(t, want, localRedirect(in, log), in)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", TokenFile)
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, saveToken(path, tok))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestConfigRequiresSecrets(t *testing.T) {
	flow := &OAuthFlow{Dir: t.TempDir(), Scopes: Scopes}
	_, err := flow.Config()
	assert.Error(t, err)
}

func TestConfigPinsRedirect(t *testing.T) {
	dir := t.TempDir()
	secrets := `{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ClientSecretsFile), []byte(secrets), 0600))

	cfg, err := (&OAuthFlow{Dir: dir, Scopes: Scopes}).Config()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:6789", cfg.RedirectURL)
	assert.Equal(t, Scopes, cfg.Scopes)
}

func TestCalendarClientNeedsServiceAccount(t *testing.T) {
	_, err := CalendarClient(context.Background(), config.CalendarConfig{ID: "primary"}, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Configuration))

	c, err := CalendarClient(context.Background(), config.CalendarConfig{ID: "primary", ClientEmail: "bot@x.iam.gserviceaccount.com", PrivateKey: "pem"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
