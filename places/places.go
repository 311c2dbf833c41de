// Package places is a thin client for the external text place-search API.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"restaurant-tracker-api/models"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("context", "places")

const (
	searchPath = "/v1/places:searchText"
	fieldMask  = "places.id,places.displayName,places.formattedAddress,places.priceLevel,places.location"

	// upstream error bodies are truncated to this size in logs
	maxErrorBody = 4 << 10
)

// Place is one normalized search candidate. Coordinates are [lng, lat].
type Place struct {
	ID          string    `json:"id"`
	DisplayText string    `json:"displayText"`
	Name        string    `json:"name,omitempty"`
	PriceLevel  string    `json:"priceLevel,omitempty"`
	Coordinates []float64 `json:"coordinates"`
}

// GeoPoint converts the candidate into a restaurant location
func (p *Place) GeoPoint() *models.GeoPoint {
	return models.NewGeoPoint(p.Coordinates[0], p.Coordinates[1], p.DisplayText)
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	TextQuery string `json:"textQuery"`
}

type searchResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName *struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string `json:"formattedAddress"`
		PriceLevel       string `json:"priceLevel"`
		Location         *struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"location"`
	} `json:"places"`
}

// Search runs a text query. Every returned candidate must carry numeric
// coordinates; one that does not fails the whole call with ErrMissingLocation.
func (c *Client) Search(ctx context.Context, textQuery string) ([]Place, error) {
	textQuery = strings.TrimSpace(textQuery)
	if textQuery == "" {
		return nil, fmt.Errorf("%w: textQuery is required", models.ErrValidation)
	}

	body, err := json.Marshal(searchRequest{TextQuery: textQuery})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(snippet),
		}).Error("Place search rejected")
		return nil, fmt.Errorf("%w: status %d", models.ErrUpstream, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrUpstream, err)
	}

	places := make([]Place, 0, len(decoded.Places))
	for i, p := range decoded.Places {
		if p.Location == nil || p.Location.Latitude == nil || p.Location.Longitude == nil {
			logger.WithFields(logrus.Fields{"query": textQuery, "index": i}).Error("Candidate without coordinates")
			return nil, fmt.Errorf("candidate %d: %w", i, models.ErrMissingLocation)
		}
		place := Place{
			ID:          p.ID,
			DisplayText: p.FormattedAddress,
			PriceLevel:  p.PriceLevel,
			Coordinates: []float64{*p.Location.Longitude, *p.Location.Latitude},
		}
		if place.ID == "" {
			place.ID = strconv.Itoa(i)
		}
		if p.DisplayName != nil {
			place.Name = p.DisplayName.Text
			if place.DisplayText == "" {
				place.DisplayText = p.DisplayName.Text
			}
		}
		places = append(places, place)
	}

	logger.WithFields(logrus.Fields{"query": textQuery, "results": len(places)}).Debug("Place search completed")
	return places, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
