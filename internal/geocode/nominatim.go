package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/clima-service/internal/models"
)

// DefaultNominatimURL is the OpenStreetMap Nominatim search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// DefaultUserAgent identifies this client to Nominatim, which rejects anonymous requests.
const DefaultUserAgent = "clima-service/1.0 (weather lookup)"

const nominatimName = "nominatim"

// NominatimProvider queries the Nominatim search API.
type NominatimProvider struct {
	baseURL        string
	acceptLanguage string
	userAgent      string
	client         *http.Client
}

// NewNominatimProvider creates a provider. Empty baseURL and userAgent use the defaults.
func NewNominatimProvider(baseURL, acceptLanguage, userAgent string, timeout time.Duration) *NominatimProvider {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &NominatimProvider{
		baseURL:        baseURL,
		acceptLanguage: acceptLanguage,
		userAgent:      userAgent,
		client:         newHTTPClient(timeout),
	}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return nominatimName }

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     *struct {
		Country string `json:"country"`
		State   string `json:"state"`
	} `json:"address"`
}

// Search implements Provider. The country hint is appended to the free-text query.
// Places whose coordinates do not parse are skipped.
func (p *NominatimProvider) Search(ctx context.Context, query, country string) ([]models.Location, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrProviderFailure, err)
	}
	q := query
	if country != "" {
		q = query + ", " + country
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(MaxResults))
	params.Set("addressdetails", "1")
	if p.acceptLanguage != "" {
		params.Set("accept-language", p.acceptLanguage)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrProviderFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	body, err := doGet(p.client, nominatimName, req)
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("%w: %s parse response: %v", ErrProviderFailure, nominatimName, err)
	}
	out := make([]models.Location, 0, len(places))
	for _, pl := range places {
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(pl.Lat), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(pl.Lon), 64)
		if errLat != nil || errLon != nil {
			continue
		}
		name, _, _ := strings.Cut(pl.DisplayName, ",")
		loc := models.Location{
			Name:      strings.TrimSpace(name),
			Latitude:  lat,
			Longitude: lon,
		}
		if pl.Address != nil {
			loc.Country = pl.Address.Country
			loc.Admin1 = pl.Address.State
		}
		out = append(out, loc)
	}
	return out, nil
}
