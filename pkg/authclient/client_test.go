package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourbook/pkg/circuitbreaker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "user@example.com"})
	})
	mux.HandleFunc("/auth/v1/admin/users/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/admin/users/user-1":
			w.WriteHeader(http.StatusOK)
		case "/auth/v1/admin/users/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(server *httptest.Server) *Client {
	return New(Options{
		BaseURL:        server.URL,
		AnonKey:        "anon-key",
		ServiceRoleKey: "service-key",
		HTTPClient:     server.Client(),
	})
}

func TestVerifyTokenRemote(t *testing.T) {
	client := newTestClient(newAuthServer(t))

	identity, err := client.VerifyToken(context.Background(), "good-token")

	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.ID)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestVerifyTokenRemoteRejected(t *testing.T) {
	client := newTestClient(newAuthServer(t))

	_, err := client.VerifyToken(context.Background(), "bad-token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectedTokensDoNotOpenBreaker(t *testing.T) {
	server := newAuthServer(t)
	breaker := circuitbreaker.NewCircuitBreaker(1, time.Minute)
	client := New(Options{BaseURL: server.URL, AnonKey: "anon-key", HTTPClient: server.Client(), Breaker: breaker})

	for i := 0; i < 5; i++ {
		client.VerifyToken(context.Background(), "bad-token")
	}

	assert.Equal(t, circuitbreaker.StateClosed, breaker.GetState())
}

func TestUnreachableAuthServiceOpensBreaker(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(1, time.Minute)
	client := New(Options{BaseURL: "http://invalid-url", HTTPClient: &http.Client{Timeout: time.Second}, Breaker: breaker})

	client.VerifyToken(context.Background(), "token")
	client.VerifyToken(context.Background(), "token")
	_, err := client.VerifyToken(context.Background(), "token")

	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}

func TestVerifyTokenLocal(t *testing.T) {
	client := New(Options{JWTSecret: "secret"})
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-7",
		"email": "seven@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	identity, err := client.VerifyToken(context.Background(), signed)

	require.NoError(t, err)
	assert.Equal(t, "user-7", identity.ID)
	assert.Equal(t, "seven@example.com", identity.Email)
}

func TestVerifyTokenLocalRejectsWrongSecretAndExpiry(t *testing.T) {
	client := New(Options{JWTSecret: "secret"})

	wrong, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte("other"))
	_, err := client.VerifyToken(context.Background(), wrong)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	_, err = client.VerifyToken(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{}).SignedString([]byte("secret"))
	_, err = client.VerifyToken(context.Background(), noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = client.VerifyToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDeleteUser(t *testing.T) {
	client := newTestClient(newAuthServer(t))

	assert.NoError(t, client.DeleteUser(context.Background(), "user-1"))
	assert.NoError(t, client.DeleteUser(context.Background(), "gone"))
	assert.Error(t, client.DeleteUser(context.Background(), "broken"))
}
