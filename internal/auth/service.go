package auth

import (
	"context"
	"errors"
	"time"

	"github.com/bosphorus-pay/bosphorus_pay/internal/config"
	"github.com/bosphorus-pay/bosphorus_pay/internal/identity"
)

// Service issues and refreshes JWTs carrying the caller's role and customer id.
type Service struct {
	cfg config.Config
	ids *identity.Service
}

// NewService builds the token service.
func NewService(cfg config.Config, ids *identity.Service) *Service {
	return &Service{cfg: cfg, ids: ids}
}

// TokenPair bundles the issued tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues an access/refresh token pair for an authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, accessExp, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(accessExp).Seconds()),
	}, nil
}

func (s *Service) sign(user identity.User, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := map[string]any{
		"sub":  user.ID,
		"name": user.Username,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	if cid := user.CustomerID(); cid != "" {
		claims["customer_id"] = cid
	}
	signed, err := SignHS256(claims, []byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Refresh verifies the refresh token and issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseAndVerifyHS256(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}
	sub, _ := claims["sub"].(string)

	user, err := s.ids.Get(ctx, sub)
	if err != nil {
		return "", 0, errors.New("user not found")
	}

	signed, _, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// IdentityFromClaims reconstructs the caller identity embedded in a token.
func IdentityFromClaims(claims map[string]any) Identity {
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	customerID, _ := claims["customer_id"].(string)
	return Identity{UserID: sub, Role: identity.Role(role), CustomerID: customerID}
}
