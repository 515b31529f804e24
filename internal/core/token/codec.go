// Package token signs and verifies the self-contained session tokens used for
// access and refresh credentials.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/duynhne/catalog-service/internal/core/domain"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, unexpected
	// algorithms and missing or unknown claims.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned only for tokens whose signature verified
	// but whose expiry is not after the current time.
	ErrTokenExpired = errors.New("token expired")
)

// Kind tells access tokens and refresh tokens apart. It is signed into the
// "typ" claim so one kind can never be presented as the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the fixed payload carried by every session token.
type Claims struct {
	SubjectID string
	Email     string
	Role      domain.Role
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Kind   string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 session tokens with a process-wide secret.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a Codec. An empty issuer disables the iss check.
func NewCodec(secret, issuer string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	c := &Codec{secret: []byte(secret), issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs claims with iat set to now and exp set to now+ttl.
// IssuedAt and ExpiresAt on the input are ignored. An empty Kind issues an
// access token.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token: non-positive ttl %s", ttl)
	}
	kind := claims.Kind
	if kind == "" {
		kind = KindAccess
	}
	if !kind.valid() {
		return "", fmt.Errorf("token: unknown kind %q", kind)
	}
	now := c.now()
	jc := jwtClaims{
		UserID: claims.SubjectID,
		Email:  claims.Email,
		Role:   string(claims.Role),
		Kind:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.SubjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess is Verify restricted to access tokens.
func (c *Codec) VerifyAccess(raw string) (Claims, error) {
	return c.verify(raw, KindAccess)
}

// VerifyRefresh is Verify restricted to refresh tokens.
func (c *Codec) VerifyRefresh(raw string) (Claims, error) {
	return c.verify(raw, KindRefresh)
}

// Verify checks the signature and expiry of raw and returns its claims.
// Expiry is reported as ErrTokenExpired; every other failure as ErrTokenInvalid.
// A token of the wrong kind is invalid even when it has also expired.
func (c *Codec) Verify(raw string) (Claims, error) {
	return c.verify(raw, "")
}

func (c *Codec) verify(raw string, want Kind) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var jc jwtClaims
	_, err := jwt.ParseWithClaims(raw, &jc, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if expiredOnly(err) {
			if want != "" && Kind(jc.Kind) != want {
				return Claims{}, fmt.Errorf("verify token: %w: expected %s token, got %q", ErrTokenInvalid, want, jc.Kind)
			}
			return Claims{}, fmt.Errorf("verify token: %w", ErrTokenExpired)
		}
		return Claims{}, fmt.Errorf("verify token: %w: %v", ErrTokenInvalid, err)
	}

	claims, err := toClaims(&jc)
	if err != nil {
		return Claims{}, fmt.Errorf("verify token: %w", err)
	}
	if want != "" && claims.Kind != want {
		return Claims{}, fmt.Errorf("verify token: %w: expected %s token, got %s", ErrTokenInvalid, want, claims.Kind)
	}
	return claims, nil
}

// DecodeUnsafe parses raw without checking signature or expiry. The result
// must never be used as an authorization decision on its own.
func (c *Codec) DecodeUnsafe(raw string) (Claims, bool) {
	var jc jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &jc); err != nil {
		return Claims{}, false
	}
	claims, err := toClaims(&jc)
	if err != nil {
		return Claims{}, false
	}
	return claims, true
}

// expiredOnly reports whether exp is the sole reason validation failed. The
// signature has already been checked by the time claims are validated.
func expiredOnly(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	for _, other := range []error{
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenUsedBeforeIssued,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenRequiredClaimMissing,
	} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}

func toClaims(jc *jwtClaims) (Claims, error) {
	role, ok := domain.ParseRole(jc.Role)
	switch {
	case jc.UserID == "" || jc.Email == "":
		return Claims{}, fmt.Errorf("%w: missing subject or email", ErrTokenInvalid)
	case !ok:
		return Claims{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, jc.Role)
	case !Kind(jc.Kind).valid():
		return Claims{}, fmt.Errorf("%w: unknown kind %q", ErrTokenInvalid, jc.Kind)
	case jc.IssuedAt == nil || jc.ExpiresAt == nil:
		return Claims{}, fmt.Errorf("%w: missing iat or exp", ErrTokenInvalid)
	}
	return Claims{
		SubjectID: jc.UserID,
		Email:     jc.Email,
		Role:      role,
		Kind:      Kind(jc.Kind),
		IssuedAt:  jc.IssuedAt.Time,
		ExpiresAt: jc.ExpiresAt.Time,
	}, nil
}

func (k Kind) valid() bool {
	return k == KindAccess || k == KindRefresh
}
