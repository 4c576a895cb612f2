package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/infra/response"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type claimsKey struct{}

// Claims identify the dashboard user calling the API
type Claims struct {
	Subject string
	Role    string
}

// TokenService signs and validates HS256 access tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// IssueToken signs an access token for subject
func (s *TokenService) IssueToken(subject, role string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"type": "access",
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses tokenString and returns its claims
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if typ, _ := mc["type"].(string); typ != "access" {
		return nil, ErrInvalidToken
	}
	subject, _ := mc["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}
	role, _ := mc["role"].(string)

	return &Claims{Subject: subject, Role: role}, nil
}

// ClaimsFromContext returns the claims stored by RequireAuth
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// AuthMiddleware rejects requests without a valid bearer token
type AuthMiddleware struct {
	tokens *TokenService
	logger logger.Logger
}

func NewAuthMiddleware(tokens *TokenService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, logger: log}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			logger.LogSecurityEvent(r.Context(), m.logger, "invalid_token", "MEDIUM", map[string]interface{}{
				"ip":    getClientIP(r, false),
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
