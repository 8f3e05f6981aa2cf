// Package authclient talks to the managed auth service: it resolves bearer
// tokens to identities and deletes identities with the service-role key.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tourbook/pkg/circuitbreaker"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken means the auth service (or the local signature check)
// rejected the token.
var ErrInvalidToken = errors.New("invalid token")

type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Options struct {
	BaseURL        string
	AnonKey        string
	ServiceRoleKey string
	// JWTSecret enables local HS256 verification instead of a network call.
	JWTSecret  string
	HTTPClient *http.Client
	Breaker    *circuitbreaker.CircuitBreaker
}

type Client struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	jwtSecret      []byte
	httpClient     *http.Client
	breaker        *circuitbreaker.CircuitBreaker
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 30*time.Second)
	}
	var secret []byte
	if opts.JWTSecret != "" {
		secret = []byte(opts.JWTSecret)
	}
	return &Client{
		baseURL:        opts.BaseURL,
		anonKey:        opts.AnonKey,
		serviceRoleKey: opts.ServiceRoleKey,
		jwtSecret:      secret,
		httpClient:     httpClient,
		breaker:        breaker,
	}
}

func (c *Client) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	if c.jwtSecret != nil {
		return c.verifyLocal(token)
	}

	var identity Identity
	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return ErrInvalidToken
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("auth service returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&identity)
	}, countable)
	if err != nil {
		return nil, err
	}
	if identity.ID == "" {
		return nil, ErrInvalidToken
	}
	return &identity, nil
}

func (c *Client) verifyLocal(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return &Identity{ID: sub, Email: email}, nil
}

// DeleteUser removes the identity. An identity that is already gone counts
// as deleted.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.breaker.Execute(func() error {
		endpoint := c.baseURL + "/auth/v1/admin/users/" + url.PathEscape(userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.serviceRoleKey)
		req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
			return nil
		}
		return fmt.Errorf("failed to delete identity: status %d", resp.StatusCode)
	}, countable)
}

func countable(err error) bool {
	return !errors.Is(err, ErrInvalidToken)
}
