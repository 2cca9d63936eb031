// Package auth builds authenticated HTTP clients for Google Calendar.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/agenda/pkg/logging"
)

const (
	// ClientSecretsFile is the downloaded OAuth client (installed app) JSON,
	// read from the config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the obtained access and refresh token.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server waits for the OAuth redirect.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// Scopes are the calendar scopes the digest needs. Capacity only reads.
var Scopes = []string{calendar.CalendarReadonlyScope}

// OAuthFlow runs the installed-app authorization code flow and caches the
// token under Dir.
type OAuthFlow struct {
	Dir    string
	Scopes []string
	Log    *slog.Logger
	// Prompt receives the URL the user must open.
	Prompt func(authURL string)
}

func (f *OAuthFlow) logger() *slog.Logger { return logging.OrDiscard(f.Log) }

// Config reads the client secrets file and pins the redirect to the local
// callback server.
func (f *OAuthFlow) Config() (*oauth2.Config, error) {
	secrets := filepath.Join(f.Dir, ClientSecretsFile)
	b, err := os.ReadFile(secrets)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", secrets, err)
	}

	cfg, err := google.ConfigFromJSON(b, f.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	cfg.RedirectURL = localRedirect(cfg.RedirectURL, f.logger())
	return cfg, nil
}

// localRedirect forces localhost and out-of-band redirects onto
// LocalhostAuthPort so they reach the callback listener.
func localRedirect(redirect string, log *slog.Logger) string {
	if redirect == "" || redirect == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	u, err := url.Parse(redirect)
	if err != nil {
		log.Warn("could not parse redirect url, using it as is", "redirect_url", redirect, "error", err)
		return redirect
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Warn("redirect url is not a localhost callback", "redirect_url", redirect)
		return redirect
	}
	if u.Port() != LocalhostAuthPort {
		u.Host = net.JoinHostPort(u.Hostname(), LocalhostAuthPort)
	}
	return u.String()
}

// Client returns an HTTP client that refreshes the cached token, running
// the browser flow first when no token is cached.
func (f *OAuthFlow) Client(ctx context.Context) (*http.Client, error) {
	cfg, err := f.Config()
	if err != nil {
		return nil, err
	}

	tokenPath := filepath.Join(f.Dir, TokenFile)
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		f.logger().Info("no cached token, starting web authorization", "token_file", tokenPath)
		tok, err = f.tokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}

	src := cfg.TokenSource(ctx, tok)
	if fresh, err := src.Token(); err == nil && (fresh.AccessToken != tok.AccessToken || fresh.RefreshToken != tok.RefreshToken) {
		if err := saveToken(tokenPath, fresh); err != nil {
			f.logger().Warn("could not save refreshed token", "error", err)
		}
	}
	return oauth2.NewClient(ctx, src), nil
}

// Authorize forces a new browser flow and replaces the cached token.
func (f *OAuthFlow) Authorize(ctx context.Context) error {
	cfg, err := f.Config()
	if err != nil {
		return err
	}
	tok, err := f.tokenFromWeb(ctx, cfg)
	if err != nil {
		return err
	}
	return saveToken(filepath.Join(f.Dir, TokenFile), tok)
}

func (f *OAuthFlow) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	if f.Prompt != nil {
		f.Prompt(authURL)
	} else {
		fmt.Printf("Open the following URL in your browser to authorize agenda:\n%s\n", authURL)
	}
	f.logger().Info("waiting for authorization code", "redirect_url", cfg.RedirectURL)

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timed out. Please try again")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
