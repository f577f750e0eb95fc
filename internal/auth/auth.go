package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/fleet-reminders/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCronSecret  = errors.New("invalid cron secret")
	ErrCronSecretDisabled = errors.New("cron secret not configured")
)

// Service handles authentication operations
type Service struct {
	jwtSecret      []byte
	tokenExp       time.Duration
	cronSecretHash []byte
}

// NewService creates a new authentication service. cronSecretHash is the
// bcrypt hash of the shared secret external schedulers present; empty
// disables secret-based access.
func NewService(secret string, exp time.Duration, cronSecretHash string) *Service {
	if secret == "" {
		secret = "default-secret-key-change-in-production"
	}
	if exp <= 0 {
		exp = 24 * time.Hour
	}
	return &Service{
		jwtSecret:      []byte(secret),
		tokenExp:       exp,
		cronSecretHash: []byte(cronSecretHash),
	}
}

// HashSecret hashes a secret using bcrypt
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(bytes), nil
}

// GenerateSecret returns a random URL-safe secret suitable for X-Cron-Secret.
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// CheckCronSecret compares a presented secret against the configured hash.
func (s *Service) CheckCronSecret(secret string) error {
	if len(s.cronSecretHash) == 0 {
		return ErrCronSecretDisabled
	}
	if secret == "" {
		return ErrInvalidCronSecret
	}
	if err := bcrypt.CompareHashAndPassword(s.cronSecretHash, []byte(secret)); err != nil {
		return ErrInvalidCronSecret
	}
	return nil
}

// SchedulerClaims are the claims attached to requests authenticated by the
// cron secret.
func SchedulerClaims() *models.Claims {
	return &models.Claims{
		UserID:   "scheduler",
		Username: "scheduler",
		Role:     models.RoleScheduler,
	}
}

// GenerateToken generates a JWT token for a user
func (s *Service) GenerateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    user.ID,
		"username":   user.Username,
		"company_id": user.CompanyID,
		"role":       string(user.Role),
		"exp":        time.Now().Add(s.tokenExp).Unix(),
		"iat":        time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	username, ok := claims["username"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	roleStr, ok := claims["role"].(string)
	if !ok || !models.IsValidRole(models.Role(roleStr)) {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	// company_id is optional; admins and schedulers act across companies.
	companyID, _ := claims["company_id"].(string)

	return &models.Claims{
		UserID:    userID,
		Username:  username,
		CompanyID: companyID,
		Role:      models.Role(roleStr),
		Exp:       int64(exp),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}
