package craftplansdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Craftplan HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Material is one component of a crafted item.
type Material struct {
	Quantity int    `json:"quantity"`
	Item     string `json:"item"`
}

// Item represents a catalog entry.
type Item struct {
	Item       string     `json:"item"`
	Method     string     `json:"method"`
	Materials  []Material `json:"materials,omitempty"`
	Cost       int        `json:"cost"`
	Source     string     `json:"source,omitempty"`
	Profession string     `json:"profession,omitempty"`
	SkillTier  int        `json:"skill_tier,omitempty"`
}

// PurchaseLine aggregates one purchased material.
type PurchaseLine struct {
	Quantity  int `json:"quantity"`
	UnitCost  int `json:"unit_cost"`
	TotalCost int `json:"total_cost"`
}

// CraftingPlan is the aggregated plan body.
type CraftingPlan struct {
	RootItem            string                  `json:"root_item"`
	RootQuantity        int                     `json:"root_quantity"`
	TotalCraftingFees   int                     `json:"total_crafting_fees"`
	TotalPurchaseCost   int                     `json:"total_purchase_cost"`
	TotalCost           int                     `json:"total_cost"`
	RawMaterials        map[string]int          `json:"raw_materials"`
	Purchases           map[string]PurchaseLine `json:"purchases"`
	ProfessionsRequired map[string]int          `json:"professions_required"`
	CraftingOrder       []string                `json:"crafting_order"`
}

// Plan represents a computed plan record.
type Plan struct {
	ID           string       `json:"id"`
	RootItem     string       `json:"root_item"`
	RootQuantity int          `json:"root_quantity"`
	TotalCost    int          `json:"total_cost"`
	Plan         CraftingPlan `json:"plan"`
	CreatedAt    string       `json:"created_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ComputePlan computes and saves a plan for an item.
func (c *Client) ComputePlan(ctx context.Context, item string, quantity int) (Plan, error) {
	body := map[string]any{
		"item":     item,
		"quantity": quantity,
	}
	var resp Plan
	err := c.do(ctx, http.MethodPost, "v0/plans", body, &resp)
	return resp, err
}

// ListItems returns the full catalog.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var resp []Item
	err := c.do(ctx, http.MethodGet, "v0/items", nil, &resp)
	return resp, err
}

// SearchItems filters the catalog by a name substring.
func (c *Client) SearchItems(ctx context.Context, query string) ([]Item, error) {
	var resp []Item
	err := c.do(ctx, http.MethodGet, "v0/items?q="+url.QueryEscape(query), nil, &resp)
	return resp, err
}

// GetItem fetches one catalog entry.
func (c *Client) GetItem(ctx context.Context, item string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodGet, "v0/items/"+url.PathEscape(item), nil, &resp)
	return resp, err
}

// GetPlan fetches a saved plan by id.
func (c *Client) GetPlan(ctx context.Context, id string) (Plan, error) {
	var resp Plan
	err := c.do(ctx, http.MethodGet, "v0/plans/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListPlans returns recent saved plans.
func (c *Client) ListPlans(ctx context.Context, limit int) ([]Plan, error) {
	endpoint := "v0/plans"
	if limit > 0 {
		endpoint += fmt.Sprintf("?limit=%d", limit)
	}
	var resp []Plan
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
