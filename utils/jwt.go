package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin est le seul rôle accepté sur les routes admin
const RoleAdmin = "admin"

// ErrTokenExpired distingue un token expiré d'un token invalide
var ErrTokenExpired = errors.New("token expiré")

// Claims représente le token applicatif d'un ancien élève connecté via Google
type Claims struct {
	SubjectID string `json:"sub_id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// AdminClaims représente le token de session admin.
// IsAdmin est l'ancien marqueur, toujours accepté en lecture.
type AdminClaims struct {
	AdminID  string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken génère un token applicatif pour un ancien élève
func GenerateToken(claims Claims, secret string, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = registered(claims.SubjectID, ttl)
	return sign(&claims, secret)
}

// ValidateToken valide un token applicatif et retourne les revendications
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenString, secret, claims); err != nil {
		return nil, err
	}
	if claims.SubjectID == "" || claims.Email == "" {
		return nil, fmt.Errorf("token invalide: identité incomplète")
	}
	return claims, nil
}

// GenerateAdminToken génère un token de session admin
func GenerateAdminToken(adminID, username, secret string, ttl time.Duration) (string, error) {
	claims := &AdminClaims{
		AdminID:          adminID,
		Username:         username,
		Role:             RoleAdmin,
		RegisteredClaims: registered(adminID, ttl),
	}
	return sign(claims, secret)
}

// ValidateAdminToken valide la signature et l'expiration d'un token admin.
// Le contrôle du rôle reste à la charge de l'appelant.
func ValidateAdminToken(tokenString, secret string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := parse(tokenString, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// HasAdminRole indique si les revendications donnent accès aux routes admin
func (c *AdminClaims) HasAdminRole() bool {
	return c.Role == RoleAdmin || (c.Role == "" && c.IsAdmin)
}

func registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func sign(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("erreur lors de la signature du token: %w", err)
	}
	return tokenString, nil
}

func parse(tokenString, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Vérifier la méthode de signature
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature invalide: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("erreur lors du parsing du token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("token invalide")
	}
	return nil
}
