package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// M2MClient obtains client-credentials tokens from Keycloak for calls to other services.
type M2MClient struct {
	Config     models.Config
	HTTPClient *http.Client
	Cache      TokenStore
	Logger     *logger.Logger
}

// Token returns a cached token when one is still valid, otherwise requests a new one.
func (c *M2MClient) Token(ctx context.Context) (string, error) {
	if c.Cache != nil {
		cached, err := c.Cache.GetToken(ctx, c.Config.ClientID)
		if err != nil {
			c.Logger.Warn("AUTH", fmt.Sprintf("M2M token cache read failed: %v", err))
		} else if cached != nil {
			return cached.Token, nil
		}
	}

	tokenResp, err := GetM2MToken(ctx, c.Config, c.HTTPClient)
	if err != nil {
		return "", err
	}

	if c.Cache != nil {
		if err := c.Cache.SetToken(ctx, c.Config.ClientID, tokenResp.AccessToken, tokenResp.ExpiresIn); err != nil {
			c.Logger.Warn("AUTH", fmt.Sprintf("M2M token cache write failed: %v", err))
		}
	}
	return tokenResp.AccessToken, nil
}

// GetM2MToken performs the client_credentials grant against the realm token endpoint.
func GetM2MToken(ctx context.Context, cfg models.Config, client *http.Client) (*models.TokenResponse, error) {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimRight(cfg.KeycloakURL, "/"), cfg.KeycloakRealm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", cfg.ClientID)
	data.Set("client_secret", cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("failed to get token, status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tokenResp models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response carried no access token")
	}
	return &tokenResp, nil
}
