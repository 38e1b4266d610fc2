package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-identity-service/internal/model"
)

const DefaultIssuer = "identity-service"

type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. The secret is fixed for
// the lifetime of the service.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*TokenService)

func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
	}
}

func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: signing secret is not configured", model.ErrSigning)
	}

	s := &TokenService{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Claims are checked in Verify so that expiry is reported separately from
	// every other failure.
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	return s, nil
}

func (s *TokenService) Issue(subject string, roles []string, validityMinutes int) (model.TokenArtifact, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return model.TokenArtifact{}, fmt.Errorf("%w: token subject is required", model.ErrInvalidInput)
	}
	if validityMinutes <= 0 {
		return model.TokenArtifact{}, fmt.Errorf("%w: token validity must be positive", model.ErrInvalidInput)
	}

	validity := time.Duration(validityMinutes) * time.Minute
	// NumericDate carries whole seconds; truncating here keeps exp exactly iat+validity.
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(validity)

	claims := tokenClaims{
		Roles: dedupeRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return model.TokenArtifact{}, fmt.Errorf("%w: %w", model.ErrSigning, err)
	}

	return model.TokenArtifact{
		Token:            signed,
		Type:             model.TokenTypeBearer,
		ExpiresInSeconds: int64(validity / time.Second),
		IssuedAt:         issuedAt,
		ExpiresAt:        expiresAt,
	}, nil
}

// Verify checks the signature before anything else, so ErrExpiredToken is only
// returned for tokens this service actually signed.
func (s *TokenService) Verify(token string) (model.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Principal{}, fmt.Errorf("%w: empty token", model.ErrInvalidToken)
	}

	claims := &tokenClaims{}
	if _, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return model.Principal{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	if err := s.checkClaims(claims); err != nil {
		return model.Principal{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}

	expiresAt := claims.ExpiresAt.Time
	if !s.now().Before(expiresAt) {
		return model.Principal{}, fmt.Errorf("%w: expired at %s", model.ErrExpiredToken, expiresAt.UTC().Format(time.RFC3339))
	}

	return model.Principal{
		Subject:   claims.Subject,
		Roles:     dedupeRoles(claims.Roles),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

func (s *TokenService) checkClaims(claims *tokenClaims) error {
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.Issuer != s.issuer {
		return fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	return nil
}

func dedupeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
