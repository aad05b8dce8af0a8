// Package oauthpopup runs an OAuth2/OIDC authorization-code sign-in through the
// user's browser and a one-shot loopback listener, the command-line analogue
// of a sign-in popup.
package oauthpopup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

const googleIssuer = "https://accounts.google.com"

var (
	ErrPopupClosed    = errors.New("oauthpopup: sign-in window closed before completion")
	ErrPopupDenied    = errors.New("oauthpopup: sign-in denied by provider")
	ErrStateMismatch  = errors.New("oauthpopup: state mismatch")
	ErrNonceMismatch  = errors.New("oauthpopup: nonce mismatch")
	ErrMissingIDToken = errors.New("oauthpopup: token response has no id_token")
)

// Claims are the identity claims read from the verified ID token.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Result is a completed sign-in.
type Result struct {
	IDToken     string
	AccessToken string
	Claims      Claims
}

// Flow performs one sign-in per Run call. Config.RedirectURL must be a
// loopback http URL; port 0 picks a free port.
type Flow struct {
	Config   oauth2.Config
	Verifier *oidc.IDTokenVerifier
	// Open shows the authorization URL to the user. Defaults to logging it.
	Open   func(authURL string) error
	Logger *logrus.Logger
}

// NewGoogleFlow discovers Google's OIDC endpoints and returns a flow for clientID.
func NewGoogleFlow(ctx context.Context, clientID, clientSecret, redirectURL string, logger *logrus.Logger) (*Flow, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &Flow{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		Verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		Logger:   logger,
	}, nil
}

type callback struct {
	code string
	err  error
}

// Run opens the authorization URL and blocks until the provider redirects
// back, ctx is done, or the exchange fails.
func (f *Flow) Run(ctx context.Context) (*Result, error) {
	logger := helpers.OrStandard(f.Logger)

	redirect, err := url.Parse(f.Config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("redirect url: %w", err)
	}
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", redirect.Host, err)
	}
	redirect.Host = ln.Addr().String()
	if redirect.Path == "" {
		redirect.Path = "/"
	}
	cfg := f.Config
	cfg.RedirectURL = redirect.String()

	state, err := helpers.GenToken(24)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	nonce, err := helpers.GenToken(24)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.Handle(redirect.Path, callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier), oidc.Nonce(nonce))
	open := f.Open
	if open == nil {
		open = func(u string) error {
			logger.WithField("url", u).Info("open this URL in a browser to sign in")
			return nil
		}
	}
	if err := open(authURL); err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	var cb callback
	select {
	case <-ctx.Done():
		return nil, ErrPopupClosed
	case cb = <-results:
	}
	if cb.err != nil {
		return nil, cb.err
	}

	tok, err := cfg.Exchange(ctx, cb.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, ErrMissingIDToken
	}
	idt, err := f.Verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if idt.Nonce != nonce {
		return nil, ErrNonceMismatch
	}
	res := &Result{IDToken: raw, AccessToken: tok.AccessToken}
	if err := idt.Claims(&res.Claims); err != nil {
		return nil, fmt.Errorf("id token claims: %w", err)
	}
	logger.WithField("sub", res.Claims.Subject).Debug("popup sign-in completed")
	return res, nil
}

// callbackHandler accepts the first redirect and reports it on results.
func callbackHandler(state string, results chan<- callback) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var cb callback
		switch {
		case q.Get("state") != state:
			cb.err = ErrStateMismatch
		case q.Get("error") != "":
			cb.err = fmt.Errorf("%w: %s", ErrPopupDenied, q.Get("error"))
		case q.Get("code") == "":
			cb.err = fmt.Errorf("%w: no authorization code", ErrPopupDenied)
		default:
			cb.code = q.Get("code")
		}
		select {
		case results <- cb:
		default:
			http.Error(w, "sign-in already completed", http.StatusConflict)
			return
		}
		if cb.err != nil {
			http.Error(w, "Sign-in failed. You can close this window.", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Signed in. You can close this window."))
	})
}

// Runner is anything that can complete a popup sign-in. *Flow implements it.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

var _ Runner = (*Flow)(nil)
