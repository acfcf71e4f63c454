package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultCookieName holds the signed envelope in the browser
	DefaultCookieName = "portal_session"
	cookieIssuer      = "member-portal"
)

type envelopeClaims struct {
	Session Envelope `json:"session"`
	jwt.RegisteredClaims
}

// CookieSigner signs envelopes as HS256 JWTs for the session cookie.
type CookieSigner struct {
	name    string
	key     []byte
	nowTime func() time.Time
}

func NewCookieSigner(name string, key []byte) (*CookieSigner, error) {
	if len(key) < 16 {
		return nil, errors.New("[NewCookieSigner] signing key must be at least 16 bytes")
	}
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieSigner{name: name, key: key, nowTime: time.Now}, nil
}

func (cs *CookieSigner) Name() string {
	return cs.name
}

// Sign encodes env as a signed token.
func (cs *CookieSigner) Sign(env *Envelope) (string, error) {
	claims := envelopeClaims{
		Session: *env,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   cookieIssuer,
			Subject:  env.IdentityKey,
			IssuedAt: jwt.NewNumericDate(cs.nowTime()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cs.key)
	if err != nil {
		return "", fmt.Errorf("[CookieSigner.Sign] %w", err)
	}
	return signed, nil
}

// Parse verifies a signed envelope. Expiry is left to the cache.
func (cs *CookieSigner) Parse(value string) (*Envelope, error) {
	var claims envelopeClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (interface{}, error) {
		return cs.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(cookieIssuer))
	if err != nil {
		return nil, fmt.Errorf("[CookieSigner.Parse] %w", err)
	}
	env := claims.Session
	return &env, nil
}

// Store binds the signer to one request/response pair.
func (cs *CookieSigner) Store(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{signer: cs, w: w, r: r}
}

// CookieStore is a Store over a single HTTP exchange: it reads the request
// cookie and writes Set-Cookie headers on the response.
type CookieStore struct {
	signer *CookieSigner
	w      http.ResponseWriter
	r      *http.Request
}

var _ Store = (*CookieStore)(nil)

func (s *CookieStore) Load(_ context.Context) (*Envelope, error) {
	cookie, err := s.r.Cookie(s.signer.name)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.signer.Parse(cookie.Value)
}

func (s *CookieStore) Save(_ context.Context, env *Envelope) error {
	if env == nil {
		return errors.New("[CookieStore.Save] nil envelope")
	}
	value, err := s.signer.Sign(env)
	if err != nil {
		return err
	}
	maxAge := int(time.Until(env.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(s.w, s.cookie(value, maxAge))
	return nil
}

// Clear deletes the cookie in the browser.
func (s *CookieStore) Clear(_ context.Context) error {
	http.SetCookie(s.w, s.cookie("", -1))
	return nil
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.signer.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure(s.r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
