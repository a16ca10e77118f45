package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"ms-events/internal/logger"
)

// TokenSource supplies the service token sent to the structure service.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RemoteMembership asks the structure service whether a user belongs to a structure.
type RemoteMembership struct {
	BaseURL string
	Client  *http.Client
	Tokens  TokenSource
	Logger  *logger.Logger
}

func (m *RemoteMembership) IsMember(ctx context.Context, structureID int64, userID string) (bool, error) {
	token, err := m.Tokens.Token(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get M2M token: %w", err)
	}

	u, err := url.Parse(m.BaseURL + "/internal/v1/structures/verify-membership")
	if err != nil {
		return false, fmt.Errorf("invalid structure service URL: %w", err)
	}
	q := u.Query()
	q.Set("structureId", strconv.FormatInt(structureID, 10))
	q.Set("userId", userID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("membership request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("membership verification failed with status: %s", resp.Status)
	}

	var isMember bool
	if err := json.NewDecoder(resp.Body).Decode(&isMember); err != nil {
		return false, fmt.Errorf("failed to parse membership response: %w", err)
	}

	m.Logger.Debug("AUTHZ", fmt.Sprintf("User %s membership of structure %d: %v", userID, structureID, isMember))
	return isMember, nil
}
