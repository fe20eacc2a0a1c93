package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/clima-service/internal/models"
)

// DefaultOpenMeteoURL is the Open-Meteo geocoding search endpoint.
const DefaultOpenMeteoURL = "https://geocoding-api.open-meteo.com/v1/search"

const openMeteoName = "open-meteo"

// OpenMeteoProvider queries the Open-Meteo geocoding API.
type OpenMeteoProvider struct {
	baseURL  string
	language string
	client   *http.Client
}

// NewOpenMeteoProvider creates a provider. Empty baseURL uses DefaultOpenMeteoURL;
// language selects the result language (e.g. "pt").
func NewOpenMeteoProvider(baseURL, language string, timeout time.Duration) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		baseURL:  baseURL,
		language: language,
		client:   newHTTPClient(timeout),
	}
}

// Name implements Provider.
func (p *OpenMeteoProvider) Name() string { return openMeteoName }

type openMeteoResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Admin1    string  `json:"admin1"`
	} `json:"results"`
}

// Search implements Provider. A response without "results" means no match.
func (p *OpenMeteoProvider) Search(ctx context.Context, query, country string) ([]models.Location, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrProviderFailure, err)
	}
	params := url.Values{}
	params.Set("name", query)
	params.Set("count", strconv.Itoa(MaxResults))
	if p.language != "" {
		params.Set("language", p.language)
	}
	params.Set("format", "json")
	if country != "" {
		params.Set("country", country)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrProviderFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := doGet(p.client, openMeteoName, req)
	if err != nil {
		return nil, err
	}

	var apiResp openMeteoResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %s parse response: %v", ErrProviderFailure, openMeteoName, err)
	}
	out := make([]models.Location, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		out = append(out, models.Location{
			Name:      r.Name,
			Country:   r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Admin1:    r.Admin1,
		})
	}
	return out, nil
}
