package api

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	cookieName = "tsdash"
	tokenKey   = "token"
)

// CookieJar carries the session token in a signed cookie.
type CookieJar struct {
	store *sessions.CookieStore
	log   *zap.Logger
}

// NewCookieJar creates a jar signing cookies with key. An empty key is
// replaced by a random one, which invalidates cookies on restart.
func NewCookieJar(key string, secure bool, logger *zap.Logger) *CookieJar {
	secret := []byte(key)
	if key == "" {
		logger.Warn("no session key configured, generating a random one")
		secret = securecookie.GenerateRandomKey(32)
	} else if len(key) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
	}

	store := sessions.NewCookieStore(secret)
	opts := &sessions.Options{
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	return &CookieJar{store: store, log: logger}
}

func (j *CookieJar) session(r *http.Request) *sessions.Session {
	sess, err := j.store.Get(r, cookieName)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			j.log.Debug("session cookie invalid, ignoring", zap.Error(err))
		} else {
			j.log.Warn("failed to read session cookie", zap.Error(err))
		}
	}
	return sess
}

// Token returns the token carried by the request, or "".
func (j *CookieJar) Token(r *http.Request) string {
	if v, ok := j.session(r).Values[tokenKey].(string); ok {
		return v
	}
	return ""
}

// SetToken stores token in the response cookie.
func (j *CookieJar) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess := j.session(r)
	sess.Values[tokenKey] = token
	sess.Options.MaxAge = 0
	return sess.Save(r, w)
}

// Clear expires the cookie.
func (j *CookieJar) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := j.session(r)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
