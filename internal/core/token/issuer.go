package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/duynhne/catalog-service/internal/core/domain"
)

// Pair is an access token together with its refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer mints token pairs with a short access lifetime and a long refresh lifetime.
type Issuer struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer returns an Issuer. accessTTL must be positive and shorter than refreshTTL.
func NewIssuer(codec *Codec, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("token: nil codec")
	}
	if accessTTL <= 0 || accessTTL >= refreshTTL {
		return nil, fmt.Errorf("token: access ttl %s must be positive and shorter than refresh ttl %s", accessTTL, refreshTTL)
	}
	return &Issuer{codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// AccessTTL is the lifetime of access tokens minted by the Issuer.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// IssuePair mints an access and a refresh token carrying the same identity.
// Only the typ claim differs. Persisting the refresh token is the caller's job.
func (i *Issuer) IssuePair(subjectID, email string, role domain.Role) (Pair, error) {
	c := Claims{SubjectID: subjectID, Email: email, Role: role}

	access, err := i.IssueAccess(c)
	if err != nil {
		return Pair{}, err
	}
	c.Kind = KindRefresh
	refresh, err := i.codec.Issue(c, i.refreshTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints only an access token for the identity in c. c.Kind is
// ignored.
func (i *Issuer) IssueAccess(c Claims) (string, error) {
	c.Kind = KindAccess
	access, err := i.codec.Issue(c, i.accessTTL)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}
