package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stellarcompass/compass/pkg/logger"
	"go.uber.org/zap"
)

// Claims represents JWT claims for the admin surface
type Claims struct {
	Subject string `json:"sub_name"`
	jwt.RegisteredClaims
}

// Service signs and validates admin tokens with an HMAC secret
type Service struct {
	secret     []byte
	issuer     string
	audience   string
	expiration time.Duration
}

// Config holds authentication configuration
type Config struct {
	Secret     string
	Issuer     string
	Audience   string
	Expiration time.Duration
}

// NewConfig creates a new auth configuration from environment variables
func NewConfig() *Config {
	return &Config{
		Secret:     os.Getenv("ADMIN_JWT_SECRET"),
		Issuer:     getEnvOrDefault("JWT_ISSUER", "stellar-compass"),
		Audience:   getEnvOrDefault("JWT_AUDIENCE", "compass-admin"),
		Expiration: getEnvDurationOrDefault("JWT_EXPIRATION", 24*time.Hour),
	}
}

// NewService creates a new authentication service
func NewService(config *Config) (*Service, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET is required")
	}
	if len(config.Secret) < 32 {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET must be at least 32 bytes")
	}
	return &Service{
		secret:     []byte(config.Secret),
		issuer:     config.Issuer,
		audience:   config.Audience,
		expiration: config.Expiration,
	}, nil
}

// GenerateToken generates a new admin JWT
func (s *Service) GenerateToken(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Validate issuer and audience
	if claims.Issuer != s.issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	audienceValid := false
	for _, aud := range claims.Audience {
		if aud == s.audience {
			audienceValid = true
			break
		}
	}
	if !audienceValid {
		return nil, fmt.Errorf("invalid audience")
	}

	return claims, nil
}

type ctxKey struct{}

// Middleware guards the admin routes with Bearer token authentication
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := s.ValidateToken(tokenString)
		if err != nil {
			logger.Log.Warn("token validation failed", zap.Error(err), zap.String("ip", r.RemoteAddr))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext extracts admin claims from context
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*Claims)
	return claims, ok
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
