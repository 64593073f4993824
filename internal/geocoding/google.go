// Package geocoding resolves place names to coordinates through the Google
// Geocoding API, with an optional cache in front.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paklift/service-ride/internal/domain/geo"
	"github.com/paklift/service-ride/internal/platform/apperr"
	"github.com/paklift/service-ride/internal/platform/metrics"
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// geocodeResponse is the subset of the Google Geocoding response we read.
type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Client is a geo.Geocoder backed by the Google Geocoding API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      Cache
	logger     *zap.Logger
}

// NewClient creates a new Client. cache may be nil.
func NewClient(baseURL, apiKey string, httpClient *http.Client, cache Cache, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		cache:      cache,
		logger:     logger,
	}
}

// Resolve returns the coordinates of the first result for placeName. An unknown
// place is AddressNotFound; transport and quota failures are GeocodeFailed.
func (c *Client) Resolve(ctx context.Context, placeName string) (geo.Coordinate, error) {
	name := strings.TrimSpace(placeName)
	if name == "" {
		return geo.Coordinate{}, apperr.NewRequiredFieldError("placeName")
	}

	start := time.Now()
	if c.cache != nil {
		coords, ok, err := c.cache.Get(ctx, name)
		if err != nil {
			c.logger.Warn("geocode cache read failed", zap.String("place", name), zap.Error(err))
		}
		if ok {
			metrics.TrackGeocodeRequest("ok", true, time.Since(start))
			return coords, nil
		}
	}

	coords, status, err := c.lookup(ctx, name)
	metrics.TrackGeocodeRequest(status, false, time.Since(start))
	if err != nil {
		return geo.Coordinate{}, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, name, coords); err != nil {
			c.logger.Warn("geocode cache write failed", zap.String("place", name), zap.Error(err))
		}
	}
	return coords, nil
}

func (c *Client) lookup(ctx context.Context, name string) (geo.Coordinate, string, error) {
	params := url.Values{}
	params.Set("address", name)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return geo.Coordinate{}, "error", apperr.Wrap(apperr.KindGeocodeFailed, "failed to build geocode request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("geocode request failed", zap.String("place", name), zap.Error(err))
		return geo.Coordinate{}, "error", apperr.Wrap(apperr.KindGeocodeFailed, "geocoding service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("geocode request returned non-200",
			zap.String("place", name),
			zap.Int("status_code", resp.StatusCode),
		)
		return geo.Coordinate{}, "error", apperr.New(apperr.KindGeocodeFailed,
			fmt.Sprintf("geocoding service returned HTTP %d", resp.StatusCode))
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Coordinate{}, "error", apperr.Wrap(apperr.KindGeocodeFailed, "failed to decode geocode response", err)
	}

	switch {
	case body.Status == statusOK && len(body.Results) > 0:
		loc := body.Results[0].Geometry.Location
		coords := geo.Coordinate{Latitude: loc.Lat, Longitude: loc.Lng}
		if err := coords.Validate(); err != nil {
			return geo.Coordinate{}, "error", apperr.Wrap(apperr.KindGeocodeFailed, "geocoding service returned invalid coordinates", err)
		}
		return coords, "ok", nil
	case body.Status == statusZeroResults || body.Status == statusOK:
		return geo.Coordinate{}, "not_found", apperr.New(apperr.KindAddressNotFound,
			fmt.Sprintf("address not found: %s", name))
	default:
		c.logger.Warn("geocode request rejected",
			zap.String("place", name),
			zap.String("status", body.Status),
			zap.String("error_message", body.ErrorMessage),
		)
		return geo.Coordinate{}, "error", apperr.New(apperr.KindGeocodeFailed,
			fmt.Sprintf("geocoding failed with status %s", body.Status))
	}
}
