package geo

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"lademeter/internal/logger"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrPlaceNotFound reports a place name the geocoder returned no match for.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrNetwork reports a request that failed or returned an unusable answer.
	ErrNetwork = errors.New("geocoding request failed")
)

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Resolver turns a free-text place name into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, place string) (Coordinate, error)
}

// Options configures a NominatimResolver.
type Options struct {
	Endpoint           string
	UserAgent          string
	AcceptLanguage     string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// NominatimResolver queries a Nominatim-compatible search endpoint.
// Successful lookups are cached for the lifetime of the resolver.
type NominatimResolver struct {
	endpoint       string
	userAgent      string
	acceptLanguage string
	http           *http.Client

	mu    sync.RWMutex
	cache map[string]Coordinate
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimResolver builds a resolver with its own HTTP client.
func NewNominatimResolver(opts Options) *NominatimResolver {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return NewNominatimResolverWithClient(opts, &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	})
}

// NewNominatimResolverWithClient uses the given client as is.
func NewNominatimResolverWithClient(opts Options, httpClient *http.Client) *NominatimResolver {
	return &NominatimResolver{
		endpoint:       opts.Endpoint,
		userAgent:      opts.UserAgent,
		acceptLanguage: opts.AcceptLanguage,
		http:           httpClient,
		cache:          make(map[string]Coordinate),
	}
}

// Resolve performs a single search request for place. No retries.
func (r *NominatimResolver) Resolve(ctx context.Context, place string) (Coordinate, error) {
	query := normalizePlace(place)
	if query == "" {
		return Coordinate{}, fmt.Errorf("%w: empty place name", ErrPlaceNotFound)
	}

	key := strings.ToLower(query)
	if c, ok := r.cached(key); ok {
		logger.Debug("Geocode cache hit", "place", query)
		return c, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	if r.acceptLanguage != "" {
		req.Header.Set("Accept-Language", r.acceptLanguage)
	}

	logger.Info("Geocoding place", "place", query)

	resp, err := r.http.Do(req)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Coordinate{}, fmt.Errorf("%w: status %d: %s", ErrNetwork, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinate{}, fmt.Errorf("%w: decoding response: %v", ErrNetwork, err)
	}
	if len(results) == 0 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: invalid latitude %q", ErrNetwork, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: invalid longitude %q", ErrNetwork, results[0].Lon)
	}

	c := Coordinate{Lat: lat, Lon: lon}
	r.store(key, c)

	logger.Info("Geocoded place", "place", query, "match", results[0].DisplayName, "lat", lat, "lon", lon)
	return c, nil
}

func (r *NominatimResolver) cached(key string) (Coordinate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[key]
	return c, ok
}

func (r *NominatimResolver) store(key string, c Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = c
}

// normalizePlace composes umlauts typed as base letter + combining mark and
// collapses inner whitespace.
func normalizePlace(place string) string {
	return strings.Join(strings.Fields(norm.NFC.String(place)), " ")
}
