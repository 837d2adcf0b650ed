package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	Type     string `json:"typ"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullname,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Subject is the identity an access token is minted for.
type Subject struct {
	ID       uuid.UUID
	Username string
	Email    string
	FullName string
}

type Options struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         clockwork.Clock
}

type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         clockwork.Clock
}

func NewService(o Options) *Service {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.AccessTTL <= 0 {
		o.AccessTTL = 15 * time.Minute
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		accessSecret:  o.AccessSecret,
		refreshSecret: o.RefreshSecret,
		accessTTL:     o.AccessTTL,
		refreshTTL:    o.RefreshTTL,
		clock:         o.Clock,
	}
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) IssueAccessToken(sub Subject) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Type:     TypeAccess,
		Username: sub.Username,
		Email:    sub.Email,
		FullName: sub.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) IssueRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.refreshTTL)
	claims := Claims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) Verify(raw string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !tkn.Valid {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

func (s *Service) VerifyAccess(raw string) (*Claims, error) {
	return s.verifyTyped(raw, s.accessSecret, TypeAccess)
}

func (s *Service) VerifyRefresh(raw string) (*Claims, error) {
	return s.verifyTyped(raw, s.refreshSecret, TypeRefresh)
}

func (s *Service) verifyTyped(raw string, secret []byte, typ string) (*Claims, error) {
	claims, err := s.Verify(raw, secret)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: want %s token, got %q", ErrTokenInvalid, typ, claims.Type)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return claims, nil
}

// Digest is the form a refresh token is persisted in.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
