package geocoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/foodcart/pkg/config"
	"github.com/example/foodcart/pkg/geo"
	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when the geocoder answers but locates nothing.
var ErrNotFound = errors.New("address not found")

const (
	collectionPath = "response.GeoObjectCollection"
	featuresPath   = collectionPath + ".featureMember"
	positionPath   = featuresPath + ".0.GeoObject.Point.pos"
)

// Client queries a Yandex-compatible geocoding HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg *config.GeocoderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Geocode makes exactly one request and returns the first located feature.
func (c *Client) Geocode(ctx context.Context, address string) (*geo.Point, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("format", "json")
	params.Set("geocode", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoder request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoder response: %w", err)
	}

	return parseResponse(body)
}

func parseResponse(body []byte) (*geo.Point, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("geocoder response is not valid JSON")
	}
	if !gjson.GetBytes(body, collectionPath).Exists() {
		return nil, errors.New("unexpected geocoder response structure")
	}
	if gjson.GetBytes(body, featuresPath+".#").Int() == 0 {
		return nil, ErrNotFound
	}

	pos := gjson.GetBytes(body, positionPath)
	if !pos.Exists() {
		return nil, errors.New("geocoder feature has no position")
	}
	return parsePosition(pos.String())
}

// parsePosition reads "lon lat".
func parsePosition(pos string) (*geo.Point, error) {
	fields := strings.Fields(pos)
	if len(fields) != 2 {
		return nil, fmt.Errorf("malformed position %q", pos)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed longitude %q: %w", fields[0], err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed latitude %q: %w", fields[1], err)
	}

	p := &geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return nil, fmt.Errorf("position %q out of range", pos)
	}
	return p, nil
}
