package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusbook/examsvc/internal/rbac"
)

type AuthService struct{ hmac []byte }

func NewAuthService(secret string) *AuthService { return &AuthService{hmac: []byte(secret)} }

type Claims struct {
	Sub  string `json:"sub"`  // staff email or student phone
	Role string `json:"role"` // admin|faculty|student|guardian
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "examsvc",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return c, nil
}

// JWTMiddleware validates the bearer token and attaches the caller's subject
// and role to the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := WithSubject(r.Context(), c.Sub)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StudentCredentials resolves a student login to their stored bcrypt hash.
// The roster SQL store implements this.
type StudentCredentials interface {
	AccessHash(ctx context.Context, phone string) (string, error)
}

// Verifier checks a local login and yields the caller's role.
type Verifier struct {
	AdminUser     string
	AdminPassHash string // bcrypt
	Students      StudentCredentials
}

func (v Verifier) Verify(ctx context.Context, username, password string) (string, error) {
	if v.AdminUser != "" && username == v.AdminUser {
		if bcrypt.CompareHashAndPassword([]byte(v.AdminPassHash), []byte(password)) == nil {
			return "admin", nil
		}
		return "", errors.New("invalid credentials")
	}
	if v.Students != nil {
		hash, err := v.Students.AccessHash(ctx, username)
		if err == nil && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil {
			return "student", nil
		}
	}
	return "", errors.New("invalid credentials")
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, v Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role, err := v.Verify(r.Context(), req.Username, req.Password)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}
