package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"where2meet/internal/geo"
	"where2meet/internal/retry"
)

const (
	DefaultBaseURL = "https://catalog.api.2gis.com"
	itemsPath      = "/3.0/items"
	itemFields     = "items.point,items.reviews,items.address"
	maxBodyBytes   = 4 << 20
)

// DGISClient queries the 2GIS catalog API.
type DGISClient struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

func NewDGISClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *DGISClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DGISClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		http:     httpClient,
		attempts: 3,
		backoff:  200 * time.Millisecond,
		logger:   logger,
	}
}

type dgisResponse struct {
	Meta struct {
		Code int `json:"code"`
	} `json:"meta"`
	Result struct {
		Items []dgisItem `json:"items"`
	} `json:"result"`
}

type dgisItem struct {
	Name        string `json:"name"`
	AddressName string `json:"address_name"`
	Point       *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"point"`
	Reviews struct {
		Rating             float64 `json:"rating"`
		Count              int     `json:"count"`
		GeneralRating      float64 `json:"general_rating"`
		GeneralReviewCount int     `json:"general_review_count"`
	} `json:"reviews"`
}

// Search returns places in category within the query radius, rated at least
// MinRating, nearest first. 5xx answers and transport errors are retried
// while ctx allows.
func (c *DGISClient) Search(ctx context.Context, q Query) ([]Place, error) {
	params := url.Values{}
	params.Set("q", q.Category)
	params.Set("point", formatCoord(q.Center.Lon)+","+formatCoord(q.Center.Lat))
	params.Set("radius", strconv.Itoa(q.Radius))
	params.Set("type", "branch")
	params.Set("fields", itemFields)
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + itemsPath + "?" + params.Encode()

	var body dgisResponse
	err := retry.DoWithRetry(ctx, c.attempts, c.backoff, func() error {
		body = dgisResponse{}
		return c.fetch(ctx, endpoint, &body)
	})
	if err != nil {
		return nil, err
	}

	// 2GIS reports "nothing found" in meta with a 200 status.
	if body.Meta.Code == http.StatusNotFound {
		return []Place{}, nil
	}

	res := make([]Place, 0, len(body.Result.Items))
	for _, it := range body.Result.Items {
		if it.Point == nil {
			continue
		}
		rating, count := it.Reviews.Rating, it.Reviews.Count
		if rating == 0 {
			rating, count = it.Reviews.GeneralRating, it.Reviews.GeneralReviewCount
		}
		if rating < q.MinRating {
			continue
		}
		pt := geo.Point{Lat: it.Point.Lat, Lon: it.Point.Lon}
		res = append(res, Place{
			Name:         it.Name,
			Address:      it.AddressName,
			Rating:       rating,
			ReviewsCount: count,
			Point:        pt,
			Distance:     geo.Distance(q.Center, pt),
			ExternalLink: "https://2gis.ru/search/" + url.PathEscape(it.Name),
			NavLinks:     navLinks(pt),
		})
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Distance < res[j].Distance })
	return res, nil
}

func (c *DGISClient) fetch(ctx context.Context, endpoint string, out *dgisResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.logger.Warn("2gis upstream error", "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return retry.Permanent(fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("%w: decode: %v", ErrUpstream, err))
	}
	return nil
}

func navLinks(p geo.Point) NavLinks {
	lat, lon := formatCoord(p.Lat), formatCoord(p.Lon)
	return NavLinks{
		Google: "https://www.google.com/maps/dir/?api=1&destination=" + lat + "," + lon,
		Yandex: "https://yandex.ru/maps/?rtext=" + lat + "%2C" + lon + "&rtt=auto",
	}
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
