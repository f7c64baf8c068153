// Package fetch retrieves procurement announcements from an upstream source.
//
// Two implementations exist: NaraFetcher talks to the 나라장터 open-data API,
// StaticFetcher serves a fixed batch when no API key is configured. Both are
// selected at wiring time; downstream code only sees the Fetcher interface.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bidwatch/internal/model"
)

const (
	// DefaultBaseURL is the construction-work notice listing endpoint of the
	// public procurement open-data portal.
	DefaultBaseURL = "http://apis.data.go.kr/1230000/BidPublicInfoService04/getBidPblancListInfoCnstwk"

	defaultPageSize = 100
	httpTimeout     = 15 * time.Second
)

// Fetcher returns one finite batch of candidate announcements per call.
// Transport failures are reported through the error return, never a panic.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Candidate, error)
}

// NaraFetcher fetches announcements from the open-data API.
type NaraFetcher struct {
	baseURL    string
	serviceKey string
	pageSize   int
	client     *http.Client
}

// NewNaraFetcher constructs a live fetcher with a shared HTTP client.
func NewNaraFetcher(baseURL, serviceKey string) *NaraFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &NaraFetcher{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		pageSize:   defaultPageSize,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// naraResponse mirrors the envelope of the open-data API JSON response.
type naraResponse struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items      []naraItem `json:"items"`
			TotalCount int        `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

// naraItem mirrors a single announcement in the upstream payload.
type naraItem struct {
	BidNtceNo   string `json:"bidNtceNo"`
	BidNtceNm   string `json:"bidNtceNm"`
	DminsttNm   string `json:"dminsttNm"`
	PresmptPrce string `json:"presmptPrce"`
	BidClseDt   string `json:"bidClseDt"`
	DtilViewURL string `json:"dtilViewUrl"`
}

// Fetch retrieves the first page of current announcements.
func (f *NaraFetcher) Fetch(ctx context.Context) ([]model.Candidate, error) {
	params := url.Values{}
	params.Set("serviceKey", f.serviceKey)
	params.Set("pageNo", "1")
	params.Set("numOfRows", strconv.Itoa(f.pageSize))
	params.Set("type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp naraResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if code := apiResp.Response.Header.ResultCode; code != "" && code != "00" {
		return nil, fmt.Errorf("upstream result %s: %s", code, apiResp.Response.Header.ResultMsg)
	}

	candidates := make([]model.Candidate, 0, len(apiResp.Response.Body.Items))
	for _, item := range apiResp.Response.Body.Items {
		candidates = append(candidates, model.Candidate{
			ExternalID: item.BidNtceNo,
			Title:      item.BidNtceNm,
			Agency:     item.DminsttNm,
			PriceRaw:   item.PresmptPrce,
			ClosingAt:  item.BidClseDt,
			DetailLink: item.DtilViewURL,
		})
	}
	return candidates, nil
}
