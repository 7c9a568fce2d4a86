package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "sitegen/1.0"
)

type Options struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Nominatim resolves addresses against an OpenStreetMap Nominatim search endpoint.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *infra.Logger
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func NewNominatim(opts Options) *Nominatim {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Nominatim{baseURL: baseURL, userAgent: userAgent, client: client, logger: logger}
}

// Lookup returns the first match for address. ok is false when nothing matched.
func (n *Nominatim) Lookup(ctx context.Context, address string) (domain.Coordinates, bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinates{}, false, nil
	}
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinates{}, false, &domain.ProviderError{Provider: "nominatim", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, false, nil
	}
	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode: invalid coordinates %q,%q", results[0].Lat, results[0].Lon)
	}
	n.logger.Debug().Str("address", address).Float64("lat", lat).Float64("lng", lng).Msg("geocode: resolved")
	return domain.Coordinates{Lat: lat, Lng: lng}, true, nil
}

var _ domain.Geocoder = (*Nominatim)(nil)
