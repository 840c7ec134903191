// Package auth verifies station credentials and establishes sessions.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ts-dashboard/internal/gateway"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

// Error kinds, matched with errors.Is.
var (
	ErrMissingFields      = errors.New("missing station code or password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNetwork            = errors.New("authentication service unreachable")
)

// User-facing messages.
const (
	MsgMissingFields  = "請填寫轉運站和密碼"
	MsgUnknownStation = "無效的轉運站代碼"
	MsgRejected       = "登入失敗，請檢查轉運站代碼和密碼"
	MsgNetwork        = "無法連接伺服器"
)

// Error is a failed login. Message is shown to the user verbatim.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Digest returns the lower-case hex SHA-256 of password.
func Digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Options control the login chain.
type Options struct {
	// DemoMode skips the remote verifier.
	DemoMode bool
	// DemoFallback lets the demo verifier answer when the remote verifier
	// cannot be reached.
	DemoFallback bool
}

// Authenticator runs the login chain and writes the session.
type Authenticator struct {
	remote   source.Verifier
	demo     source.Verifier
	store    session.Store
	opts     Options
	log      *zap.Logger
	newToken func() string
}

// New creates an Authenticator. remote may be nil, which behaves like demo mode.
func New(remote, demo source.Verifier, store session.Store, opts Options, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		remote:   remote,
		demo:     demo,
		store:    store,
		opts:     opts,
		log:      logger,
		newToken: uuid.NewString,
	}
}

// Login verifies the credentials, persists a new session and returns it with
// its token.
func (a *Authenticator) Login(ctx context.Context, stationCode, password string) (session.Session, string, error) {
	stationCode = strings.TrimSpace(stationCode)
	if stationCode == "" || password == "" {
		return session.Session{}, "", &Error{Kind: ErrMissingFields, Message: MsgMissingFields}
	}

	acct, err := a.verify(ctx, stationCode, Digest(password))
	if err != nil {
		a.log.Info("login failed", zap.String("station", stationCode), zap.Error(err))
		return session.Session{}, "", err
	}

	sess := session.Session{StationCode: acct.StationCode, DisplayName: acct.DisplayName, IsAdmin: acct.IsAdmin}
	token := a.newToken()
	if err := a.store.Save(ctx, token, sess); err != nil {
		return session.Session{}, "", fmt.Errorf("failed to save session: %w", err)
	}
	a.log.Info("login succeeded", zap.String("station", sess.StationCode), zap.Bool("admin", sess.IsAdmin))
	return sess, token, nil
}

func (a *Authenticator) verify(ctx context.Context, stationCode, digest string) (source.Account, error) {
	if a.remote != nil && !a.opts.DemoMode {
		acct, err := a.remote.Login(ctx, stationCode, digest)
		switch {
		case err == nil:
			return acct, nil
		case !gateway.IsTransport(err):
			return source.Account{}, rejection(err)
		case !a.opts.DemoFallback:
			return source.Account{}, &Error{Kind: ErrNetwork, Message: MsgNetwork + ": " + err.Error(), Err: err}
		}
		a.log.Warn("remote login unavailable, using demo verification",
			zap.String("station", stationCode), zap.Error(err))
	}

	acct, err := a.demo.Login(ctx, stationCode, digest)
	if err != nil {
		if errors.Is(err, source.ErrUnknownStation) {
			return source.Account{}, &Error{Kind: ErrInvalidCredentials, Message: MsgUnknownStation, Err: err}
		}
		return source.Account{}, &Error{Kind: ErrNetwork, Message: MsgNetwork + ": " + err.Error(), Err: err}
	}
	return acct, nil
}

// rejection converts an explicit remote refusal.
func rejection(err error) error {
	msg := MsgRejected
	if errors.Is(err, gateway.ErrApplication) {
		msg = gateway.Message(err)
	}
	return &Error{Kind: ErrInvalidCredentials, Message: msg, Err: err}
}

// Current returns the session stored under token.
func (a *Authenticator) Current(ctx context.Context, token string) (session.Session, bool) {
	sess, err := a.store.Load(ctx, token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			a.log.Error("failed to load session", zap.Error(err))
		}
		return session.Session{}, false
	}
	return sess, true
}

// Logout removes the session stored under token. Removing an absent session
// succeeds.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	return a.store.Clear(ctx, token)
}
