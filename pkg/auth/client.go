package auth

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/harrisonrobin/agenda/pkg/apperr"
	"github.com/harrisonrobin/agenda/pkg/config"
)

// ServiceAccountClient authenticates as a service account with its client
// email and PEM private key.
func ServiceAccountClient(ctx context.Context, email, privateKey string, scopes []string) *http.Client {
	conf := &jwt.Config{
		Email:      email,
		PrivateKey: []byte(privateKey),
		Scopes:     scopes,
		TokenURL:   google.JWTTokenURL,
	}
	return conf.Client(ctx)
}

// ConfigDir is where OAuth client secrets and tokens live, next to the
// config file.
func ConfigDir() (string, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// CalendarClient picks the credential flow configured in cfg.
func CalendarClient(ctx context.Context, cfg config.CalendarConfig, log *slog.Logger) (*http.Client, error) {
	if cfg.UseOAuth {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		flow := &OAuthFlow{Dir: dir, Scopes: Scopes, Log: log}
		client, err := flow.Client(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.Configuration, err, "google oauth credentials unavailable")
		}
		return client, nil
	}
	if cfg.ClientEmail == "" || cfg.PrivateKey == "" {
		return nil, apperr.New(apperr.Configuration, "missing GOOGLE_CLIENT_EMAIL or GOOGLE_PRIVATE_KEY")
	}
	return ServiceAccountClient(ctx, cfg.ClientEmail, cfg.PrivateKey, Scopes), nil
}
