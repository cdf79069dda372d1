// Package mealgen talks to the external dish-suggestion collaborator.
// The service is opaque: it takes the pantry plus meal context and
// returns structured dish suggestions that the meal-plan materializer
// consumes.
package mealgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fernhollow/tripsync/internal/model"
)

// Request carries the context the collaborator needs for a suggestion.
type Request struct {
	Ingredients []string       `json:"ingredients"`
	Meal        model.MealSlot `json:"meal"`
	Adults      int            `json:"adults"`
	Children    int            `json:"children"`
	TripTitle   string         `json:"tripTitle"`
}

// Generator produces dish suggestions. The HTTP client implements it;
// handler tests substitute a canned one.
type Generator interface {
	SuggestDishes(ctx context.Context, req Request) ([]model.GeneratedDish, error)
}

// Config holds collaborator connection settings.
type Config struct {
	URL        string
	Credential string
}

// Client is the HTTP Generator.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a collaborator client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// dishPayload mirrors the collaborator's response schema. One payload
// per dish, several dishes per meal when the menu splits into courses.
type dishPayload struct {
	MenuName     string `json:"menuName"`
	Reason       string `json:"reason"`
	ShoppingList []struct {
		Name string `json:"name"`
		Need string `json:"need"`
		Have string `json:"have"`
		Buy  string `json:"buy"`
	} `json:"shoppingList"`
	Recipe struct {
		Steps      []string `json:"steps"`
		VideoQuery string   `json:"videoQuery"`
	} `json:"recipe"`
}

// SuggestDishes asks the collaborator for dish suggestions.
func (c *Client) SuggestDishes(ctx context.Context, req Request) ([]model.GeneratedDish, error) {
	if c.cfg.Credential == "" {
		return nil, fmt.Errorf("no collaborator credential configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("suggestion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion request: status %d", resp.StatusCode)
	}

	var payloads []dishPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	dishes := make([]model.GeneratedDish, 0, len(payloads))
	for _, p := range payloads {
		dish := model.GeneratedDish{
			Name:      p.MenuName,
			Rationale: p.Reason,
			Recipe: model.Recipe{
				Steps:       p.Recipe.Steps,
				SearchQuery: p.Recipe.VideoQuery,
			},
		}
		for _, line := range p.ShoppingList {
			dish.ShoppingList = append(dish.ShoppingList, model.ShoppingLine{
				Name: line.Name,
				Need: line.Need,
				Have: line.Have,
				Buy:  line.Buy,
			})
		}
		dishes = append(dishes, dish)
	}
	return dishes, nil
}
