package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

const probeScope = "feed:push"

// ProbeAuthService issues and checks the tokens latency probes use to push batches.
type ProbeAuthService interface {
	GenerateToken(probeID string) (string, error)
	ValidateToken(tokenString string) (*ProbeClaims, error)
}

type ProbeClaims struct {
	ProbeID string `json:"probe_id"`
	Scope   string `json:"scope"`
	jwt.RegisteredClaims
}

type probeAuthService struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewProbeAuthService(secret string, tokenTTL time.Duration) ProbeAuthService {
	return &probeAuthService{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (s *probeAuthService) GenerateToken(probeID string) (string, error) {
	now := s.now()
	claims := &ProbeClaims{
		ProbeID: probeID,
		Scope:   probeScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   probeID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *probeAuthService) ValidateToken(tokenString string) (*ProbeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ProbeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ProbeClaims)
	if !ok || !token.Valid || claims.Scope != probeScope || claims.ProbeID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
