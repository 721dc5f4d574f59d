package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"listingsportal/server/config"
	"listingsportal/server/internal/models"
)

const (
	rentalEndpoint = "listings/rental/long-term"
	saleEndpoint   = "listings/sale"
)

var (
	ErrUnauthorized      = errors.New("feed rejected the api key")
	ErrUnavailable       = errors.New("feed unavailable")
	ErrMalformedResponse = errors.New("malformed feed response")
	ErrEmptySnapshot     = errors.New("feed returned no listings")
)

// Query is the region and filter profile sent to the feed.
type Query struct {
	Latitude      float64
	Longitude     float64
	RadiusMiles   float64
	PropertyTypes []models.PropertyType
	MinBedrooms   float64
	MinBathrooms  float64
	// 0 disables the price cap
	MaxPrice int64
	// Maximum days on market, below 1 means any
	DaysOld int
}

// QueryFromConfig builds the reconciliation profile.
func QueryFromConfig(cfg config.ReconcileConfig) (Query, error) {
	types, err := models.ParsePropertyTypes(cfg.PropertyTypes)
	if err != nil {
		return Query{}, err
	}
	return Query{
		Latitude:      cfg.Latitude,
		Longitude:     cfg.Longitude,
		RadiusMiles:   cfg.RadiusMiles,
		PropertyTypes: types,
		MinBedrooms:   cfg.MinBedrooms,
		MinBathrooms:  cfg.MinBathrooms,
		MaxPrice:      cfg.MaxPrice,
		DaysOld:       cfg.DaysOnMarket,
	}, nil
}

// Client pulls active listings from the RentCast listings API.
type Client struct {
	logger      *logrus.Logger
	baseURL     *url.URL
	apiKey      string
	client      *http.Client
	pageLimit   int
	maxPages    int
	includeSale bool
}

func NewClient(cfg config.FeedConfig, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed base url: %w", err)
	}

	pageLimit := cfg.PageLimit
	if pageLimit < 1 || pageLimit > 500 {
		pageLimit = 500
	}
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	return &Client{
		logger:      logger,
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		client:      &http.Client{Timeout: cfg.Timeout},
		pageLimit:   pageLimit,
		maxPages:    maxPages,
		includeSale: cfg.IncludeSale,
	}, nil
}

// FetchActiveListings returns the current snapshot of active listings for q,
// rentals first and then, when enabled, sale listings. The snapshot may hold
// duplicate natural keys. An empty snapshot is reported as ErrEmptySnapshot.
func (c *Client) FetchActiveListings(ctx context.Context, q Query) ([]Record, error) {
	records, err := c.fetchAll(ctx, rentalEndpoint, q)
	if err != nil {
		return nil, err
	}

	if q.MaxPrice > 0 {
		kept := records[:0]
		for _, r := range records {
			if r.Price <= q.MaxPrice {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	if c.includeSale {
		sales, err := c.fetchAll(ctx, saleEndpoint, q)
		if err != nil {
			return nil, err
		}
		records = append(records, sales...)
	}

	if len(records) == 0 {
		return nil, ErrEmptySnapshot
	}
	return records, nil
}

func (c *Client) fetchAll(ctx context.Context, endpoint string, q Query) ([]Record, error) {
	var records []Record
	for page := 0; page < c.maxPages; page++ {
		batch, err := c.fetchPage(ctx, endpoint, q, page*c.pageLimit)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)

		c.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"page":     page,
			"count":    len(batch),
		}).Debug("Fetched feed page")

		if len(batch) < c.pageLimit {
			break
		}
	}
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, q Query, offset int) ([]Record, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed url: %w", err)
	}
	u := c.baseURL.ResolveReference(ref)
	u.RawQuery = c.queryParams(q, offset).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d from %s", ErrUnavailable, resp.StatusCode, endpoint)
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return records, nil
}

func (c *Client) queryParams(q Query, offset int) url.Values {
	params := url.Values{
		"limit":     []string{strconv.Itoa(c.pageLimit)},
		"offset":    []string{strconv.Itoa(offset)},
		"status":    []string{"Active"},
		"latitude":  []string{formatFloat(q.Latitude)},
		"longitude": []string{formatFloat(q.Longitude)},
		"radius":    []string{formatFloat(q.RadiusMiles)},
		"bedrooms":  []string{formatFloat(q.MinBedrooms)},
		"bathrooms": []string{formatFloat(q.MinBathrooms)},
	}
	if len(q.PropertyTypes) > 0 {
		names := make([]string, len(q.PropertyTypes))
		for i, p := range q.PropertyTypes {
			names[i] = p.String()
		}
		params.Set("propertyType", strings.Join(names, "|"))
	}
	if q.DaysOld >= 1 {
		params.Set("daysOld", strconv.Itoa(q.DaysOld))
	}
	return params
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
