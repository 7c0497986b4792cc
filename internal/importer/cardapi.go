package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/card-nexus/internal/metrics"
)

const (
	DefaultCardAPIBaseURL = "https://api.pokemontcg.io/v2"
	DefaultCardAPIPage    = 250
)

// CardAPIClient pages through the upstream /cards endpoint, keeping the
// card objects as raw JSON so Normalize sees exactly what the API sent.
type CardAPIClient struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	pageSize int
	limiter  *rate.Limiter
	log      *zap.Logger
}

type CardAPIConfig struct {
	BaseURL  string
	APIKey   string
	PageSize int
	// Delay is the minimum gap between two requests. Zero disables it.
	Delay time.Duration
}

func NewCardAPIClient(cfg CardAPIConfig, log *zap.Logger) *CardAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCardAPIBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultCardAPIPage
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	return &CardAPIClient{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		pageSize: cfg.PageSize,
		limiter:  rate.NewLimiter(limit, 1),
		log:      log,
	}
}

// CardPage is one page of the upstream envelope.
type CardPage struct {
	Data       []json.RawMessage `json:"data"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	Count      int               `json:"count"`
	TotalCount int               `json:"totalCount"`
}

// HasMore reports whether a page after this one exists.
func (p *CardPage) HasMore() bool {
	return len(p.Data) > 0 && p.Page*p.PageSize < p.TotalCount
}

// FetchPage fetches one 1-based page. query is passed through as the
// upstream "q" search expression when non-empty.
func (c *CardAPIClient) FetchPage(ctx context.Context, page int, query string) (*CardPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	if query != "" {
		params.Set("q", query)
	}
	reqURL := fmt.Sprintf("%s/cards?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.CardAPIRequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to fetch cards page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.CardAPIRequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("card API returned status %d for page %d", resp.StatusCode, page)
	}

	var out CardPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.CardAPIRequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to decode cards page %d: %w", page, err)
	}
	metrics.CardAPIRequestsTotal.WithLabelValues("success").Inc()

	if out.Page == 0 {
		out.Page = page
	}
	if out.PageSize == 0 {
		out.PageSize = c.pageSize
	}
	return &out, nil
}

// FetchAll walks pages in order until the last one. maxPages <= 0 means no
// limit. Records fetched before an error are returned with it.
func (c *CardAPIClient) FetchAll(ctx context.Context, query string, maxPages int) ([]json.RawMessage, error) {
	var records []json.RawMessage
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		p, err := c.FetchPage(ctx, page, query)
		if err != nil {
			return records, err
		}
		records = append(records, p.Data...)
		c.log.Info("Fetched cards page",
			zap.Int("page", page),
			zap.Int("count", len(p.Data)),
			zap.Int("fetched", len(records)),
			zap.Int("total", p.TotalCount))

		if !p.HasMore() {
			break
		}
	}
	return records, nil
}

// WriteDump writes records as one JSON array, the shape the runner reads
// back from all-cards.json.
func WriteDump(path string, records []json.RawMessage) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dump dir: %w", err)
		}
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	return os.Rename(tmp, path)
}
