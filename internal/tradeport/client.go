// Package tradeport integrates the marketplace metadata source used to
// validate and describe nominated collections.
package tradeport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultEndpoint = "https://api.indexer.xyz/graphql"

// MOVE amounts arrive in smallest units with 8 decimals.
const moveDivisor = 1e8

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40,64}$`)

// NormalizeAddress canonicalizes a contract address. The lowercase trimmed
// form is the identity for a collection everywhere in the system.
func NormalizeAddress(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidAddress reports whether a normalized address is well formed.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// Metadata describes a collection as known to the marketplace.
type Metadata struct {
	ContractAddress string
	Name            string
	ImageURL        string
	Description     string
	TwitterURL      string
	TradeportURL    string
	FloorPrice      *int64
	Volume          *int64
}

// Validation is the lookup outcome consumed by the submission ledger.
type Validation struct {
	Exists   bool
	Verified bool
	Metadata *Metadata
}

// Source is the metadata collaborator contract.
type Source interface {
	Lookup(ctx context.Context, normalizedAddress string) (Validation, error)
}

// Client queries the marketplace GraphQL API. Concurrent lookups for the
// same address are collapsed through singleflight.
type Client struct {
	endpoint string
	apiKey   string
	apiUser  string
	http     *http.Client
	group    singleflight.Group
}

// Config carries marketplace API credentials.
type Config struct {
	APIKey  string
	APIUser string
	// Endpoint overrides the GraphQL URL, for tests.
	Endpoint string
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		apiUser:  cfg.APIUser,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

const lookupQuery = `query fetchCollectionByAddress($address: String!) {
  movement {
    collections(where: { slug: { _eq: $address } }) {
      id slug title description cover_url floor volume supply verified twitter
    }
  }
}`

type graphqlResponse struct {
	Data struct {
		Movement struct {
			Collections []struct {
				Slug        string   `json:"slug"`
				Title       string   `json:"title"`
				Description string   `json:"description"`
				CoverURL    string   `json:"cover_url"`
				Floor       *float64 `json:"floor"`
				Volume      *float64 `json:"volume"`
				Verified    bool     `json:"verified"`
				Twitter     string   `json:"twitter"`
			} `json:"collections"`
		} `json:"movement"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Lookup resolves a collection by its normalized contract address.
func (c *Client) Lookup(ctx context.Context, normalizedAddress string) (Validation, error) {
	v, err, _ := c.group.Do(normalizedAddress, func() (any, error) {
		return c.lookup(ctx, normalizedAddress)
	})
	if err != nil {
		return Validation{}, err
	}
	return v.(Validation), nil
}

func (c *Client) lookup(ctx context.Context, address string) (Validation, error) {
	body, err := json.Marshal(map[string]any{
		"query":     lookupQuery,
		"variables": map[string]string{"address": address},
	})
	if err != nil {
		return Validation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Validation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-api-user", c.apiUser)

	resp, err := c.http.Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("tradeport: lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Validation{}, fmt.Errorf("tradeport: lookup status %d", resp.StatusCode)
	}

	var result graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Validation{}, fmt.Errorf("tradeport: decode: %w", err)
	}
	if len(result.Errors) > 0 {
		return Validation{}, fmt.Errorf("tradeport: graphql: %s", result.Errors[0].Message)
	}

	collections := result.Data.Movement.Collections
	if len(collections) == 0 {
		return Validation{}, nil
	}

	col := collections[0]
	meta := &Metadata{
		ContractAddress: address,
		Name:            col.Title,
		ImageURL:        col.CoverURL,
		Description:     col.Description,
		TradeportURL:    "https://tradeport.xyz/movement/collection/" + address,
		FloorPrice:      toMove(col.Floor),
		Volume:          toMove(col.Volume),
	}
	if meta.Name == "" {
		meta.Name = "Collection " + address[:min(10, len(address))]
	}
	if col.Twitter != "" {
		if strings.HasPrefix(col.Twitter, "http") {
			meta.TwitterURL = col.Twitter
		} else {
			meta.TwitterURL = "https://twitter.com/" + strings.TrimPrefix(col.Twitter, "@")
		}
	}

	return Validation{Exists: true, Verified: col.Verified, Metadata: meta}, nil
}

func toMove(raw *float64) *int64 {
	if raw == nil {
		return nil
	}
	v := int64(math.Round(*raw / moveDivisor))
	return &v
}

var _ Source = (*Client)(nil)
