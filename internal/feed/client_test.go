package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingsportal/server/config"
	"listingsportal/server/internal/models"
)

func newTestClient(t *testing.T, server *httptest.Server, modify func(*config.FeedConfig)) *Client {
	t.Helper()

	cfg := config.FeedConfig{
		BaseURL:   server.URL + "/v1",
		APIKey:    "test-key",
		Timeout:   5 * time.Second,
		PageLimit: 2,
		MaxPages:  5,
	}
	if modify != nil {
		modify(&cfg)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	client, err := NewClient(cfg, logger)
	require.NoError(t, err)
	return client
}

func records(prefix string, n int, price int64) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := range out {
		out[i] = map[string]interface{}{
			"id":           fmt.Sprintf("%s-%d", prefix, i),
			"addressLine1": fmt.Sprintf("%d Grand Concourse", i),
			"city":         "Bronx",
			"state":        "NY",
			"zipCode":      "10451",
			"county":       "Bronx",
			"latitude":     40.82,
			"longitude":    -73.92,
			"propertyType": "Apartment",
			"status":       "Active",
			"price":        price,
			"listingType":  "Standard",
			"listedDate":   "2024-09-18T00:00:00.000Z",
			"daysOnMarket": 3,
		}
	}
	return out
}

func testQuery() Query {
	return Query{
		Latitude:      40.878379,
		Longitude:     -73.881924,
		RadiusMiles:   5,
		PropertyTypes: []models.PropertyType{models.SingleFamily, models.MultiFamily},
		MinBedrooms:   1,
		MinBathrooms:  1.5,
		DaysOld:       1,
	}
}

func TestClient_FetchActiveListings_Paging(t *testing.T) {
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/listings/rental/long-term", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("limit"))
		assert.Equal(t, "Active", q.Get("status"))
		assert.Equal(t, "Single Family|Multi-Family", q.Get("propertyType"))
		assert.Equal(t, "40.878379", q.Get("latitude"))
		assert.Equal(t, "-73.881924", q.Get("longitude"))
		assert.Equal(t, "5", q.Get("radius"))
		assert.Equal(t, "1.5", q.Get("bathrooms"))
		assert.Equal(t, "1", q.Get("daysOld"))

		offsets = append(offsets, q.Get("offset"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		all := records("rent", 5, 2400)
		end := offset + 2
		if end > len(all) {
			end = len(all)
		}
		json.NewEncoder(w).Encode(all[offset:end])
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	got, err := client.FetchActiveListings(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "2", "4"}, offsets)
	require.Len(t, got, 5)
	assert.Equal(t, "rent-0", got[0].ID)
	assert.Equal(t, "rent-4", got[4].ID)
}

func TestClient_FetchActiveListings_MaxPages(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(records(fmt.Sprintf("page%d", calls), 2, 900))
	}))
	defer server.Close()

	client := newTestClient(t, server, func(c *config.FeedConfig) { c.MaxPages = 3 })
	got, err := client.FetchActiveListings(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, got, 6)
}

func TestClient_FetchActiveListings_IncludeSale(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/listings/rental/long-term":
			json.NewEncoder(w).Encode(records("rent", 1, 2100))
		case "/v1/listings/sale":
			json.NewEncoder(w).Encode(records("sale", 1, 650000))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, func(c *config.FeedConfig) { c.IncludeSale = true })
	got, err := client.FetchActiveListings(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rent-0", got[0].ID)
	assert.Equal(t, "sale-0", got[1].ID)
}

func TestClient_FetchActiveListings_MaxPrice(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("offset") != "0" {
			json.NewEncoder(w).Encode([]Record{})
			return
		}
		out := append(records("cheap", 1, 1800), records("pricey", 1, 5200)...)
		json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	q := testQuery()
	q.MaxPrice = 3000

	client := newTestClient(t, server, nil)
	got, err := client.FetchActiveListings(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cheap-0", got[0].ID)
	assert.Equal(t, 2, requests)
}

func TestClient_FetchActiveListings_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name:    "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			wantErr: ErrUnauthorized,
		},
		{
			name:    "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			wantErr: ErrUnauthorized,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantErr: ErrUnavailable,
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"listings":`)) },
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "empty snapshot",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[]`)) },
			wantErr: ErrEmptySnapshot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient(t, server, nil)
			got, err := client.FetchActiveListings(context.Background(), testQuery())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestClient_FetchActiveListings_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server, nil)
	_, err := client.FetchActiveListings(context.Background(), testQuery())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_FetchActiveListings_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(records("rent", 1, 900))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, server, nil)
	_, err := client.FetchActiveListings(ctx, testQuery())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueryFromConfig(t *testing.T) {
	q, err := QueryFromConfig(config.ReconcileConfig{
		Latitude:      40.878379,
		Longitude:     -73.881924,
		RadiusMiles:   5,
		PropertyTypes: []string{"Condo", "Townhouse"},
		MinBedrooms:   2,
		MaxPrice:      4000,
		DaysOnMarket:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, []models.PropertyType{models.Condo, models.Townhouse}, q.PropertyTypes)
	assert.Equal(t, float64(2), q.MinBedrooms)
	assert.Equal(t, int64(4000), q.MaxPrice)
	assert.Equal(t, 1, q.DaysOld)

	_, err = QueryFromConfig(config.ReconcileConfig{PropertyTypes: []string{"Yurt"}})
	assert.Error(t, err)
}
