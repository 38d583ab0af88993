package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://maps.googleapis.com/maps/api"
	statusOK                    = "OK"
	requestBodyReadLimit  int64 = 1024
	defaultRequestTimeout       = 10 * time.Second
)

var (
	errAPIKeyRequired = errors.New("google maps api key is required")
)

// Client wraps the Google Maps web services used for routing and geocoding.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Maps web service base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// LatLng is a latitude/longitude pair.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

func (p LatLng) param() string {
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

// DistanceResult is one origin/destination element of a distance matrix.
type DistanceResult struct {
	Meters  int
	Seconds int
}

// Geocode is the first match returned by the geocoding API.
type Geocode struct {
	FormattedAddress string
	Location         LatLng
	City             string
}

// Distance returns road distance and travel time between two points.
// Any non-OK status, top level or element level, is returned as an error.
func (c *Client) Distance(ctx context.Context, origin, destination LatLng) (*DistanceResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}

	query := url.Values{}
	query.Set("origins", origin.param())
	query.Set("destinations", destination.param())
	query.Set("units", "metric")

	var apiResp struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value int `json:"value"`
				} `json:"distance"`
				Duration struct {
					Value int `json:"value"`
				} `json:"duration"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := c.get(ctx, "distancematrix/json", query, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != statusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "distance matrix returned "+apiResp.Status)
	}
	if len(apiResp.Rows) == 0 || len(apiResp.Rows[0].Elements) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "distance matrix response had no elements")
	}
	element := apiResp.Rows[0].Elements[0]
	if element.Status != statusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "distance matrix element returned "+element.Status)
	}

	return &DistanceResult{Meters: element.Distance.Value, Seconds: element.Duration.Value}, nil
}

// GeocodeAddress resolves free-form address text into coordinates.
// ZERO_RESULTS is reported as a validation error since the input is at fault.
func (c *Client) GeocodeAddress(ctx context.Context, address string) (*Geocode, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	query := url.Values{}
	query.Set("address", trimmed)

	var apiResp struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress  string `json:"formatted_address"`
			AddressComponents []struct {
				LongName string   `json:"long_name"`
				Types    []string `json:"types"`
			} `json:"address_components"`
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.get(ctx, "geocode/json", query, &apiResp); err != nil {
		return nil, err
	}
	switch apiResp.Status {
	case statusOK:
	case "ZERO_RESULTS":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address could not be located")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geocoding returned "+apiResp.Status)
	}
	if len(apiResp.Results) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address could not be located")
	}

	first := apiResp.Results[0]
	out := &Geocode{
		FormattedAddress: first.FormattedAddress,
		Location: LatLng{
			Latitude:  first.Geometry.Location.Lat,
			Longitude: first.Geometry.Location.Lng,
		},
	}
	for _, comp := range first.AddressComponents {
		if hasType(comp.Types, "locality") {
			out.City = comp.LongName
			break
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	query.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"), query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build maps request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute maps request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "maps request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode maps response")
	}
	return nil
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
