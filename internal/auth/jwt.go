package auth

import (
	"errors"
	"strings"
	"time"

	"DevcampAPI/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims: полезная нагрузка токена, sub = id пользователя
type Claims struct {
	jwt.RegisteredClaims
}

type JWTService struct {
	cfg       config.JWTConfig
	key       []byte
	clockFunc func() time.Time
}

func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("jwt issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("jwt audience is required")
	}
	return &JWTService{
		cfg:       cfg,
		key:       []byte(cfg.Secret),
		clockFunc: time.Now,
	}, nil
}

// Issue signs an HS256 token for userID.
func (s *JWTService) Issue(userID string) (string, error) {
	now := s.clockFunc()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings{s.cfg.Audience},
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL())),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// TTL is the token lifetime.
func (s *JWTService) TTL() time.Duration {
	return time.Duration(s.cfg.ExpireMin) * time.Minute
}

func (s *JWTService) ValidateToken(token string) (*Claims, error) {
	skew := s.cfg.ClockSkewSec
	if skew < 0 {
		skew = 0
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(time.Duration(skew)*time.Second),
		jwt.WithTimeFunc(s.clockFunc),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("jwt subject is required")
	}
	return claims, nil
}
