package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/clms-app/clms/apps/api/echo"
	"github.com/clms-app/clms/core"
	"github.com/clms-app/clms/testutil"
)

const pwd = "Xy7#kq9Lmz"

func Test_home(t *testing.T) {
	a := setup(t)
	a.run(t, []httpTest{
		{name: "home", path: "/", wantCode: http.StatusOK, wantData: marchallObj(t, MessageResponse{Message: "cLMS API running"})},
		{name: "unknown route", path: "/api/nope", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Not Found"})},
	})
}

func Test_authApi_register(t *testing.T) {
	a := setup(t)
	testutil.CreateTeacher(t, a.usrRepo, "Mrs Teach", "teach@school.io", pwd)
	testutil.CreateStudent(t, a.usrRepo, "Ana", "ana@school.io", "123456789012", pwd, 0)

	body := func(fields map[string]string) []byte { return marchallObj(t, fields) }

	a.run(t, []httpTest{
		{
			name: "teacher: duplicate email", method: http.MethodPost, path: "/api/auth/register",
			body:     body(map[string]string{"name": "Other", "email": "TEACH@school.io", "password": pwd}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "Email already in use"}),
		},
		{
			name: "teacher: invalid", method: http.MethodPost, path: "/api/auth/register",
			body:     body(map[string]string{"email": "nope", "password": "short"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":     "this field is required",
				"email":    "email must be a valid email address",
				"password": "password must contain at least 8 characters",
			}),
		},
		{
			name: "teacher: malformed body", method: http.MethodPost, path: "/api/auth/register",
			body: []byte(`{"name": `), wantCode: http.StatusBadRequest,
		},
		{
			name: "student: duplicate lrn", method: http.MethodPost, path: "/api/auth/student/register",
			body:     body(map[string]string{"name": "Bob", "email": "bob@school.io", "password": pwd, "lrn": "123456789012"}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "LRN already registered"}),
		},
	})

	t.Run("teacher: created", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/register",
			body(map[string]string{"name": "Mr New", "email": "new@school.io", "password": pwd}))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp TeacherResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, "Teacher registered", resp.Message)
		assert.NotEmpty(t, resp.Teacher.ID)
		assert.Equal(t, "new@school.io", resp.Teacher.Email)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("student: created", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/student/register",
			body(map[string]string{"name": "Bob", "email": "bob@school.io", "password": pwd, "lrn": "LRN-0002"}))
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp StudentResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, "Student registered", resp.Message)
		assert.Equal(t, "LRN-0002", resp.Student.LRN)
		assert.Equal(t, 0, resp.Student.XP)
		assert.Equal(t, 1, resp.Student.Level)
	})
}

func Test_authApi_login(t *testing.T) {
	a := setup(t)
	tchr := testutil.CreateTeacher(t, a.usrRepo, "Mrs Teach", "teach@school.io", pwd)
	stdt := testutil.CreateStudent(t, a.usrRepo, "Ana", "ana@school.io", "123456789012", pwd, 0)

	creds := func(email, password string) []byte {
		return marchallObj(t, map[string]string{"email": email, "password": password})
	}

	a.run(t, []httpTest{
		{
			name: "teacher: wrong password", method: http.MethodPost, path: "/api/auth/login",
			body: creds("teach@school.io", "wrong"), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "Invalid password"}),
		},
		{
			name: "teacher: unknown", method: http.MethodPost, path: "/api/auth/login",
			body: creds("ana@school.io", pwd), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "teacher not found"}),
		},
		{
			name: "student: unknown", method: http.MethodPost, path: "/api/auth/student/login",
			body: creds("teach@school.io", pwd), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/api/auth/student/login",
			body: creds("", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
			}),
		},
	})

	tests := []struct {
		name  string
		path  string
		email string
		want  core.Identity
	}{
		{name: "teacher", path: "/api/auth/login", email: " Teach@school.io", want: tchr.Identity()},
		{name: "student", path: "/api/auth/student/login", email: "ana@school.io", want: stdt.Identity()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, creds(tt.email, pwd))
			a.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp LoginResponse
			unmarshal(t, rec, &resp)
			assert.Equal(t, "Login successful", resp.Message)

			claims := new(Claims)
			_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(a.conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims.Identity())
			assert.InDelta(t, time.Now().Add(7*24*time.Hour).Unix(), claims.ExpiresAt, 5)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	a := setup(t)
	stdt := testutil.CreateStudent(t, a.usrRepo, "Ana", "ana@school.io", "123456789012", "", 0)

	expiredRefresh := NewClaims(a.conf, stdt.Identity(), time.Now().Add(-a.conf.Server.JWTRefreshExpirationDelta-time.Minute).Unix())
	expiredRefreshToken, err := GenerateToken(a.conf, expiredRefresh)
	require.NoError(t, err)

	ghostToken := a.token(t, core.Identity{ID: "1b0f5a3e-0000-4000-8000-000000000000", Role: core.RoleStudent})

	a.run(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/auth/token-refresh",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "invalid token", method: http.MethodPost, path: "/api/auth/token-refresh", token: "abc.def.ghi",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken),
		},
		{
			name: "deleted account", method: http.MethodPost, path: "/api/auth/token-refresh", token: ghostToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "refresh expired", method: http.MethodPost, path: "/api/auth/token-refresh", token: expiredRefreshToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
	})

	t.Run("refreshed", func(t *testing.T) {
		origIat := time.Now().Add(-time.Hour).Unix()
		token, err := GenerateToken(a.conf, NewClaims(a.conf, stdt.Identity(), origIat))
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/api/auth/token-refresh", token)
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp TokenResponse
		unmarshal(t, rec, &resp)
		claims := new(Claims)
		_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(a.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, origIat, claims.OrigIssuedAt, "the original issue time is kept")
		assert.Equal(t, stdt.Identity(), claims.Identity())
	})
}
