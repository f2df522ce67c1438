package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	signInPath = "/v1/accounts:signInWithPassword"
	signUpPath = "/v1/accounts:signUp"
)

// FirebaseClient implements Service against the Identity Toolkit REST API
type FirebaseClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tokens     TokenStore
	logger     zerolog.Logger
}

// NewFirebaseClient creates a new identity client
func NewFirebaseClient(baseURL, apiKey string, timeout time.Duration, tokens TokenStore, logger zerolog.Logger) *FirebaseClient {
	return &FirebaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		logger: logger,
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *FirebaseClient) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// credentialsRequest is the body of both sign-in and sign-up calls
type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// credentialsResponse is the successful response of both calls
type credentialsResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// idTokenClaims are the claims we read from the provider's ID token
type idTokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticate signs an existing user in
func (c *FirebaseClient) Authenticate(ctx context.Context, email, password string) (*User, error) {
	return c.credentials(ctx, signInPath, email, password)
}

// Register creates a user and signs it in
func (c *FirebaseClient) Register(ctx context.Context, email, password string) (*User, error) {
	return c.credentials(ctx, signUpPath, email, password)
}

// SignOut forgets the stored tokens. The REST API has no server-side sign-out
// for password sessions.
func (c *FirebaseClient) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.tokens.DeleteTokens(c.apiKey); err != nil {
		return fmt.Errorf("sign out failed: %w", err)
	}

	c.logger.Debug().Msg("Deleted stored session tokens")
	return nil
}

func (c *FirebaseClient) credentials(ctx context.Context, path, email, password string) (*User, error) {
	jsonData, err := json.Marshal(credentialsRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s%s?key=%s", c.baseURL, path, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// a superseded call is not a network failure
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn().Err(err).Str("path", path).Msg("Identity request failed")
		return nil, &AuthError{Code: "auth/network-request-failed", Message: MessageNetworkRequest}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{Code: "auth/network-request-failed", Message: MessageNetworkRequest}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp.StatusCode, body)
	}

	var creds credentialsResponse
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return c.userFromResponse(creds)
}

// SaveSession stores the user's tokens for this project
func (c *FirebaseClient) SaveSession(user *User) error {
	if err := c.tokens.SaveTokens(c.apiKey, Tokens{
		UserID:       user.ID,
		IDToken:      user.IDToken,
		RefreshToken: user.RefreshToken,
	}); err != nil {
		return fmt.Errorf("failed to save session tokens: %w", err)
	}

	c.logger.Debug().Str("user_id", user.ID).Msg("Saved session tokens")
	return nil
}

func (c *FirebaseClient) decodeError(status int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		c.logger.Warn().Int("status", status).Str("body", string(body)).Msg("Unrecognized identity error response")
		return &AuthError{Code: "auth/internal-error", Message: MessageInternalError}
	}

	authErr := providerError(errResp.Error.Message)
	c.logger.Debug().
		Int("status", status).
		Str("provider_code", errResp.Error.Message).
		Str("code", authErr.Code).
		Msg("Identity provider rejected request")
	return authErr
}

func (c *FirebaseClient) userFromResponse(creds credentialsResponse) (*User, error) {
	if creds.LocalID == "" || creds.Email == "" {
		return nil, &AuthError{Code: "auth/internal-error", Message: MessageInternalError}
	}

	claims, err := parseIDToken(creds.IDToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to parse ID token")
		return nil, &AuthError{Code: "auth/invalid-user-token", Message: MessageInvalidUserToken}
	}

	if subject := claims.subject(); subject != "" && subject != creds.LocalID {
		return nil, &AuthError{Code: "auth/invalid-user-token", Message: MessageInvalidUserToken}
	}

	return &User{
		ID:           creds.LocalID,
		Email:        creds.Email,
		IDToken:      creds.IDToken,
		RefreshToken: creds.RefreshToken,
	}, nil
}

// parseIDToken reads the claims without verifying the signature.
// Only used to cross-check the user id.
func parseIDToken(token string) (*idTokenClaims, error) {
	if token == "" {
		return nil, errors.New("empty id token")
	}

	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

func (c *idTokenClaims) subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
