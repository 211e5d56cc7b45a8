// Package oidc runs the authorization code flow against an OpenID Connect
// identity provider and yields the verified email of the signed-in user.
package oidc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/lborres/quill/core"
)

const defaultStateTTL = 10 * time.Minute

type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Secret signs the flow state cookie.
	Secret []byte
	// StateTTL bounds how long a started sign-in may take.
	StateTTL time.Duration
	// Timeout bounds the token exchange round trip.
	Timeout time.Duration
}

// Validate reports missing settings.
func (c Config) Validate() error {
	var missing []string
	if c.Issuer == "" {
		missing = append(missing, "issuer")
	}
	if c.ClientID == "" {
		missing = append(missing, "client id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if c.RedirectURL == "" {
		missing = append(missing, "redirect url")
	}
	if len(c.Secret) == 0 {
		missing = append(missing, "state secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("oidc config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Exchanger implements core.IdentityExchanger.
type Exchanger struct {
	oauth2   oauth2.Config
	verifier *gooidc.IDTokenVerifier
	secret   []byte
	stateTTL time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

var _ core.IdentityExchanger = (*Exchanger)(nil)

// New discovers the provider metadata for cfg.Issuer and returns an Exchanger.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Exchanger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	discovery, err := gooidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	verifier := discovery.Verifier(&gooidc.Config{ClientID: cfg.ClientID})
	return newExchanger(cfg, discovery.Endpoint(), verifier, logger), nil
}

func newExchanger(cfg Config, endpoint oauth2.Endpoint, verifier *gooidc.IDTokenVerifier, logger *zap.Logger) *Exchanger {
	if logger == nil {
		logger = zap.NewNop()
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &Exchanger{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       append([]string{}, scopes...),
		},
		verifier: verifier,
		secret:   cfg.Secret,
		stateTTL: ttl,
		timeout:  cfg.Timeout,
		logger:   logger.Named("oidc"),
		now:      time.Now,
	}
}

// Start returns the provider authorization URL and the signed state the
// caller must keep until the callback.
func (e *Exchanger) Start(_ context.Context) (string, string, error) {
	var claims flowClaims
	for _, dst := range []*string{&claims.State, &claims.Nonce, &claims.CodeVerifier} {
		v, err := randomToken(randomEntropyByteCount)
		if err != nil {
			return "", "", fmt.Errorf("generate flow state: %w", err)
		}
		*dst = v
	}

	state, err := encodeState(e.secret, claims, e.stateTTL, e.now())
	if err != nil {
		return "", "", err
	}

	authURL := e.oauth2.AuthCodeURL(claims.State,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("nonce", claims.Nonce),
		oauth2.SetAuthURLParam("code_challenge", pkceChallenge(claims.CodeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return authURL, state, nil
}

// Exchange redeems code and returns the verified email from the ID token.
// Every failure wraps core.ErrFederationExchangeFailed.
func (e *Exchanger) Exchange(ctx context.Context, code, stateParam, state string) (string, error) {
	stored, err := decodeState(e.secret, state, e.now())
	if err != nil {
		return "", e.fail("decode state", err)
	}
	if stateParam == "" || subtle.ConstantTimeCompare([]byte(stateParam), []byte(stored.State)) != 1 {
		return "", e.fail("state mismatch", errInvalidState)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", e.fail("missing code", errors.New("authorization code is empty"))
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	tok, err := e.oauth2.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", stored.CodeVerifier),
	)
	if err != nil {
		return "", e.fail("token exchange", err)
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if strings.TrimSpace(rawIDToken) == "" {
		return "", e.fail("token exchange", errors.New("provider did not return id_token"))
	}

	idToken, err := e.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", e.fail("verify id_token", err)
	}
	if idToken.Nonce == "" || subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(stored.Nonce)) != 1 {
		return "", e.fail("verify id_token", errors.New("nonce mismatch"))
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", e.fail("decode claims", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return "", e.fail("decode claims", errors.New("verified email claim missing"))
	}

	return claims.Email, nil
}

func (e *Exchanger) fail(step string, err error) error {
	e.logger.Warn("federated sign-in rejected", zap.String("step", step), zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", step, core.ErrFederationExchangeFailed, core.ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %w", step, core.ErrFederationExchangeFailed, err)
}
