package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/mocks"
)

func TestInjectUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	newReq := InjectUserID(req, "abc123")

	require.Equal(t, "abc123", newReq.Context().Value(UserIDKey))
	require.Equal(t, "abc123", UserID(newReq.Context()))
	require.Empty(t, UserID(req.Context()))
}

func TestWithJWT(t *testing.T) {
	run := func(t *testing.T, auth service.AuthIface, req *http.Request) (*httptest.ResponseRecorder, string, bool) {
		t.Helper()

		rec := httptest.NewRecorder()
		var gotUserID string
		var issued bool
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID = UserID(r.Context())
			issued = IdentityIssued(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		WithJWT(auth, zap.NewNop())(handler).ServeHTTP(rec, req)
		return rec, gotUserID, issued
	}

	t.Run("no token cookie – generate new token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockAuth := mocks.NewMockAuthIface(ctrl)

		mockAuth.EXPECT().
			BuildJWTString().
			Return("mock-token", "generated-user-id", nil)

		rec, gotUserID, issued := run(t, mockAuth, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "generated-user-id", gotUserID)
		assert.True(t, issued)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, TokenCookie, cookies[0].Name)
		assert.Equal(t, "mock-token", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("valid token cookie – parse claims", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockAuth := mocks.NewMockAuthIface(ctrl)
		cookie := &http.Cookie{Name: TokenCookie, Value: "valid-token"}

		mockAuth.EXPECT().
			ParseClaims(gomock.Any()).
			Return(&service.Claims{UserID: "existing-user-id"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rec, gotUserID, issued := run(t, mockAuth, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "existing-user-id", gotUserID)
		assert.False(t, issued)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("invalid token cookie – replaced", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockAuth := mocks.NewMockAuthIface(ctrl)

		mockAuth.EXPECT().
			ParseClaims(gomock.Any()).
			Return(nil, service.ErrInvalidToken)
		mockAuth.EXPECT().
			BuildJWTString().
			Return("fresh-token", "fresh-user", nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "bad-token"})
		rec, gotUserID, issued := run(t, mockAuth, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "fresh-user", gotUserID)
		assert.True(t, issued)
		require.Len(t, rec.Result().Cookies(), 1)
		assert.Equal(t, "fresh-token", rec.Result().Cookies()[0].Value)
	})

	t.Run("token generation error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockAuth := mocks.NewMockAuthIface(ctrl)

		mockAuth.EXPECT().
			BuildJWTString().
			Return("", "", errors.New("fail"))

		rec := httptest.NewRecorder()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called on error")
		})

		WithJWT(mockAuth, zap.NewNop())(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("real auth round trip", func(t *testing.T) {
		auth := service.NewAuth("secret")

		rec, first, _ := run(t, auth, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotEmpty(t, first)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])
		_, second, issued := run(t, auth, req)
		assert.Equal(t, first, second)
		assert.False(t, issued)
	})
}
