package service

import (
	"access_service/internal/config"
	"access_service/internal/repository"
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type AccessClaims struct {
	jwt.RegisteredClaims
	Username    string   `json:"username"`
	Authorities []string `json:"authorities"`
}

// TokenService issues gateway tokens and tracks per-user expiry in Redis so
// a successful grant refreshes an existing session without re-login.
type TokenService struct {
	redisRepo *repository.RedisRepo
}

func NewTokenService() *TokenService {
	return &TokenService{
		redisRepo: repository.Repositories_instance.RedisRepository,
	}
}

func (s *TokenService) GenerateToken(username string, authorities []string) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(config.ServiceConfig.JWTExpired) * time.Hour)),
			Issuer:    config.ServiceConfig.ServiceName,
		},
		Username:    username,
		Authorities: authorities,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(config.ServiceConfig.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("error generate token string: %s", err)
	}
	return tokenString, nil
}

func (s *TokenService) ValidateToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.ServiceConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// UpdateExpiryDate stamps the moment a user's permissions changed; the
// gateway compares it against token issue time and forces a refresh.
func (s *TokenService) UpdateExpiryDate(ctx context.Context, username string) error {
	key := "access-service-token-expiry-" + username
	ttl := time.Duration(config.ServiceConfig.JWTExpired) * time.Hour
	_, err := s.redisRepo.SaveInt(ctx, key, time.Now().Unix(), ttl)
	return err
}

func (s *TokenService) GetExpiryDate(ctx context.Context, username string) int64 {
	key := "access-service-token-expiry-" + username
	return s.redisRepo.GetInt(ctx, key)
}
