// Package google wraps the Google OAuth and Sheets APIs used to mirror orders
// into a seller-owned spreadsheet. Provider failures are classified here, once,
// into errs.ExternalError kinds.
package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"livey-backend/internal/errs"
	"livey-backend/internal/oauthstate"
)

const (
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	ScopeDriveFile    = "https://www.googleapis.com/auth/drive.file"

	defaultRevokeURL = "https://oauth2.googleapis.com/revoke"
)

type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Timeout bounds every provider round-trip.
	Timeout time.Duration
	// Endpoint and RevokeURL default to Google's production endpoints.
	Endpoint  oauth2.Endpoint
	RevokeURL string
}

// Tokens is the outcome of a code exchange or refresh. RefreshToken is empty
// after a refresh unless the provider rotated it.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

type AuthClient struct {
	oauth      *oauth2.Config
	revokeURL  string
	timeout    time.Duration
	httpClient *http.Client
	states     oauthstate.Store
	log        *zap.Logger
}

func NewAuthClient(cfg AuthConfig, states oauthstate.Store, log *zap.Logger) *AuthClient {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = googleoauth.Endpoint
	}
	revokeURL := cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = defaultRevokeURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &AuthClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{ScopeSpreadsheets, ScopeDriveFile},
			Endpoint:     endpoint,
		},
		revokeURL:  revokeURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		states:     states,
		log:        log,
	}
}

// AuthURL issues a single-use state bound to sellerID and returns the consent URL.
// Consent is forced so Google returns a refresh token even on re-authorization.
func (a *AuthClient) AuthURL(ctx context.Context, sellerID uuid.UUID) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := a.states.Put(ctx, state, sellerID, oauthstate.DefaultTTL); err != nil {
		return "", err
	}

	a.log.Info("oauth url generated", zap.String("seller_id", sellerID.String()))
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// ValidateState consumes state and returns the seller it was issued to.
func (a *AuthClient) ValidateState(ctx context.Context, state string) (uuid.UUID, bool, error) {
	sellerID, ok, err := a.states.TakeOnce(ctx, state)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !ok {
		a.log.Warn("invalid oauth state")
	}
	return sellerID, ok, nil
}

// ExchangeCode trades an authorization code for tokens. The flow requires
// offline access, so a response without a refresh token is an error.
func (a *AuthClient) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, classifyTokenError("exchange code", err)
	}
	if tok.RefreshToken == "" {
		return nil, errs.ErrNoRefreshToken
	}
	return &Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Expiry: tok.Expiry}, nil
}

// RefreshAccessToken mints a new access token. A revoked or expired grant is
// reported as errs.KindRevoked.
func (a *AuthClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	tok, err := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classifyTokenError("refresh access token", err)
	}

	out := &Tokens{AccessToken: tok.AccessToken, Expiry: tok.Expiry}
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		out.RefreshToken = tok.RefreshToken
	}
	return out, nil
}

// RevokeToken asks Google to revoke token. Callers treat failure as non-fatal.
func (a *AuthClient) RevokeToken(ctx context.Context, token string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *AuthClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	return context.WithTimeout(ctx, a.timeout)
}

func classifyTokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" {
			return errs.External(errs.KindRevoked, op, err)
		}
		if re.Response != nil && re.Response.StatusCode == http.StatusTooManyRequests {
			return errs.External(errs.KindQuota, op, err)
		}
	}
	return errs.External(errs.KindTransient, op, err)
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
