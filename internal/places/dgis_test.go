package places

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"where2meet/internal/geo"
)

const sampleItems = `{
  "meta": {"code": 200},
  "result": {
    "items": [
      {"name": "Far Cafe", "address_name": "Nevsky 100", "point": {"lat": 59.95, "lon": 30.36}, "reviews": {"rating": 4.8, "count": 120}},
      {"name": "Near Cafe", "address_name": "Nevsky 1", "point": {"lat": 59.9401, "lon": 30.3401}, "reviews": {"general_rating": 4.5, "general_review_count": 30}},
      {"name": "Bad Cafe", "address_name": "Nevsky 2", "point": {"lat": 59.9402, "lon": 30.3402}, "reviews": {"rating": 3.1, "count": 4}},
      {"name": "No Point", "address_name": "Nowhere", "reviews": {"rating": 5}}
    ]
  }
}`

func newMockedClient(t *testing.T, responder httpmock.Responder) (*DGISClient, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	mock.RegisterNoResponder(responder)
	c := NewDGISClient("https://catalog.example", "secret", &http.Client{Transport: mock}, nil)
	c.backoff = time.Millisecond
	return c, mock
}

func TestSearchFiltersAndSortsByDistance(t *testing.T) {
	var seen *http.Request
	c, _ := newMockedClient(t, func(req *http.Request) (*http.Response, error) {
		seen = req
		return httpmock.NewStringResponse(http.StatusOK, sampleItems), nil
	})

	got, err := c.Search(context.Background(), Query{
		Center:    geo.Point{Lat: 59.94, Lon: 30.34},
		Radius:    1000,
		MinRating: 4.0,
		Category:  "cafe",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	q := seen.URL.Query()
	if q.Get("q") != "cafe" || q.Get("point") != "30.34,59.94" || q.Get("radius") != "1000" || q.Get("key") != "secret" {
		t.Fatalf("unexpected query %v", q)
	}
	if seen.URL.Path != "/3.0/items" {
		t.Fatalf("unexpected path %s", seen.URL.Path)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 places, got %d: %+v", len(got), got)
	}
	if got[0].Name != "Near Cafe" || got[1].Name != "Far Cafe" {
		t.Fatalf("expected nearest first, got %s, %s", got[0].Name, got[1].Name)
	}
	if got[0].Rating != 4.5 || got[0].ReviewsCount != 30 {
		t.Fatalf("expected general rating fallback, got %+v", got[0])
	}
	if got[0].ExternalLink != "https://2gis.ru/search/Near%20Cafe" {
		t.Fatalf("unexpected link %s", got[0].ExternalLink)
	}
	if got[1].NavLinks.Google != "https://www.google.com/maps/dir/?api=1&destination=59.95,30.36" {
		t.Fatalf("unexpected google link %s", got[1].NavLinks.Google)
	}
}

func TestSearchNotFoundMetaIsEmpty(t *testing.T) {
	c, _ := newMockedClient(t, httpmock.NewStringResponder(http.StatusOK, `{"meta":{"code":404},"result":{}}`))
	got, err := c.Search(context.Background(), Query{Category: "park", Radius: 500})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestSearchRetriesServerErrors(t *testing.T) {
	calls := 0
	c, mock := newMockedClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return httpmock.NewStringResponse(http.StatusBadGateway, "oops"), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, sampleItems), nil
	})
	got, err := c.Search(context.Background(), Query{Category: "cafe", Radius: 1000, MinRating: 4})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || mock.GetTotalCallCount() != 2 {
		t.Fatalf("expected retry then success, got %d places after %d calls", len(got), mock.GetTotalCallCount())
	}
}

func TestSearchDoesNotRetryClientErrors(t *testing.T) {
	c, mock := newMockedClient(t, httpmock.NewStringResponder(http.StatusForbidden, `{"meta":{"code":403}}`))
	_, err := c.Search(context.Background(), Query{Category: "cafe", Radius: 1000})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if mock.GetTotalCallCount() != 1 {
		t.Fatalf("expected a single call, got %d", mock.GetTotalCallCount())
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	cats := Categories()
	if len(cats) == 0 {
		t.Fatalf("expected categories")
	}
	cats[0] = "changed"
	if Categories()[0] == "changed" {
		t.Fatalf("Categories must not expose internal slice")
	}
}
