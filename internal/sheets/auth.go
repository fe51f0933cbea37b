package sheets

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	// ScopeSpreadsheets grants read/write access to spreadsheets.
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	// DefaultTokenURL is Google's OAuth2 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionTTL   = time.Hour
)

// assertionClaims is the service-account assertion exchanged for an access token.
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// serviceAccountSource performs the JWT-bearer grant for a service account.
type serviceAccountSource struct {
	ctx        context.Context
	email      string
	key        *rsa.PrivateKey
	scopes     []string
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time
}

// ParsePrivateKey parses a PEM encoded RSA key (PKCS#1 or PKCS#8).
func ParsePrivateKey(pemKey string) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return key, nil
}

// ServiceAccountTokenSource returns a cached token source that authenticates
// as the given service account. pemKey must already be normalized.
func ServiceAccountTokenSource(ctx context.Context, email, pemKey, tokenURL string, scopes []string, httpClient *http.Client) (oauth2.TokenSource, error) {
	key, err := ParsePrivateKey(pemKey)
	if err != nil {
		return nil, err
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	src := &serviceAccountSource{
		ctx:        ctx,
		email:      email,
		key:        key,
		scopes:     scopes,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		now:        time.Now,
	}
	return oauth2.ReuseTokenSource(nil, src), nil
}

// Token implements oauth2.TokenSource.
func (s *serviceAccountSource) Token() (*oauth2.Token, error) {
	now := s.now()
	claims := assertionClaims{
		Scope: strings.Join(s.scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.email,
			Audience:  jwt.ClaimStrings{s.tokenURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		},
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	tok := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType}
	if tr.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}
