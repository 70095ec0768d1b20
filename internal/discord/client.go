// Package discord integrates the external identity provider. Failures at
// any step abort authentication; no partial session is ever created.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://discord.com/api"

// ErrProvider indicates the identity provider rejected a call.
var ErrProvider = errors.New("discord: provider error")

// Profile is the identity payload returned after a code exchange.
type Profile struct {
	ID       string
	Username string
	Avatar   string
}

// Client talks to the Discord OAuth and guild APIs.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	guildID      string
	baseURL      string
	http         *http.Client
}

// Config carries the OAuth application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	GuildID      string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		guildID:      cfg.GuildID,
		baseURL:      strings.TrimRight(base, "/"),
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL builds the authorization redirect carrying the CSRF state.
func (c *Client) AuthURL(state string) string {
	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURI},
		"response_type": {"code"},
		"scope":         {"identify guilds guilds.members.read"},
		"state":         {state},
	}
	return c.baseURL + "/oauth2/authorize?" + params.Encode()
}

// ExchangeCode trades the authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("discord: token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discord: token exchange status %d: %w", resp.StatusCode, ErrProvider)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("discord: decode token: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("discord: empty access token: %w", ErrProvider)
	}
	return payload.AccessToken, nil
}

// FetchProfile loads the authenticated user's identity.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/@me", nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("discord: fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("discord: profile status %d: %w", resp.StatusCode, ErrProvider)
	}

	var payload struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Profile{}, fmt.Errorf("discord: decode profile: %w", err)
	}
	if payload.ID == "" {
		return Profile{}, fmt.Errorf("discord: profile missing id: %w", ErrProvider)
	}

	p := Profile{ID: payload.ID, Username: payload.Username}
	if payload.Avatar != "" {
		p.Avatar = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", payload.ID, payload.Avatar)
	}
	return p, nil
}

// FetchGuildRoles returns the member's role ids in the configured guild.
// With no guild configured the result is empty, which the gate treats as
// unrestricted only when no required roles are configured either.
func (c *Client) FetchGuildRoles(ctx context.Context, accessToken string) ([]string, error) {
	if c.guildID == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/users/@me/guilds/%s/member", c.baseURL, c.guildID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord: fetch roles: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord: roles status %d: %w", resp.StatusCode, ErrProvider)
	}

	var payload struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("discord: decode roles: %w", err)
	}
	return payload.Roles, nil
}
