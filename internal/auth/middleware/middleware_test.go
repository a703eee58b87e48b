package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusbook/examsvc/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("9000000001", "student")
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "9000000001", c.Sub)
	assert.Equal(t, "student", c.Role)

	// A token signed with a different key is rejected.
	other := NewAuthService("other-secret")
	_, err = other.Parse(tok)
	assert.Error(t, err)

	_, err = a.Parse("not-a-token")
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("faculty@school.test", "faculty")
	require.NoError(t, err)

	var gotSub, gotRole string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/tests", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "faculty@school.test", gotSub)
	assert.Equal(t, "faculty", gotRole)

	// Missing and malformed headers are both 401.
	for _, header := range []string{"", "Basic abc", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/tests", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

type fakeCreds map[string]string

func (f fakeCreds) AccessHash(_ context.Context, phone string) (string, error) {
	h, ok := f[phone]
	if !ok {
		return "", errors.New("no such student")
	}
	return h, nil
}

func TestVerifier(t *testing.T) {
	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	studentHash, err := bcrypt.GenerateFromPassword([]byte("student-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	v := Verifier{
		AdminUser:     "admin",
		AdminPassHash: string(adminHash),
		Students:      fakeCreds{"9000000001": string(studentHash)},
	}
	ctx := context.Background()

	role, err := v.Verify(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	_, err = v.Verify(ctx, "admin", "wrong")
	assert.Error(t, err)

	role, err = v.Verify(ctx, "9000000001", "student-pass")
	require.NoError(t, err)
	assert.Equal(t, "student", role)

	_, err = v.Verify(ctx, "9000000001", "wrong")
	assert.Error(t, err)
	_, err = v.Verify(ctx, "9999999999", "anything")
	assert.Error(t, err)
}
