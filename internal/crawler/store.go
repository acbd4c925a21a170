package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"sjsage522/steamsales/helpers"
	"sjsage522/steamsales/logger"
	apperrors "sjsage522/steamsales/pkg/errors"
	"sjsage522/steamsales/services/cache"

	"github.com/go-resty/resty/v2"
)

// StoreConfig contains the storefront endpoints and request policy
type StoreConfig struct {
	SearchURL  string
	DetailsURL string
	Country    string
	Language   string
	Timeout    time.Duration
	// BlockTime is how long page fetches are refused after a rate-limit response
	BlockTime time.Duration
	// DetailsTTL is how long app details stay cached
	DetailsTTL time.Duration
}

// StoreClient fetches search pages and app details from the storefront
type StoreClient struct {
	cfg      StoreConfig
	cacheSvc cache.CacheService
	details  *resty.Client
	fetch    func(ctx context.Context, rawURL string, query url.Values, referer string) (io.Reader, error)
	log      *logger.Logger
}

const (
	rateLimitCacheKey = "steam_search_rate_limited"
	detailsCacheKey   = "steam_appdetails:%s"
)

// detailsEnvelope is keyed by app id: {"<id>": {"success": true, "data": {...}}}
type detailsEnvelope map[string]struct {
	Success bool       `json:"success"`
	Data    AppDetails `json:"data"`
}

// NewStoreClient creates a storefront client; cacheSvc may be nil
func NewStoreClient(cfg StoreConfig, cacheSvc cache.CacheService) *StoreClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	helpers.SetTimeout(cfg.Timeout)

	details := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", helpers.RandomUserAgent())

	return &StoreClient{
		cfg:      cfg,
		cacheSvc: cacheSvc,
		details:  details,
		fetch:    helpers.FetchWithRandomHeaders,
		log:      logger.ForFetcher(),
	}
}

// FetchSearchPage returns the markup of one discounted-search results page
func (c *StoreClient) FetchSearchPage(ctx context.Context, page int) (string, error) {
	source := fmt.Sprintf("search page %d", page)

	// Check if the store rate limited us recently
	if c.cacheSvc != nil && cache.Exists(c.cacheSvc, rateLimitCacheKey) {
		return "", apperrors.NewRateLimit(source, c.cfg.BlockTime)
	}

	query := url.Values{
		"cc":       {c.cfg.Country},
		"l":        {c.cfg.Language},
		"specials": {"1"},
		"page":     {strconv.Itoa(page)},
		"ndl":      {"1"},
	}

	body, err := c.fetch(ctx, c.cfg.SearchURL, query, referer(c.cfg.SearchURL))
	if err != nil {
		if errors.Is(err, helpers.ErrRateLimited) {
			c.blockFetching()
			return "", apperrors.New(apperrors.ErrorTypeRateLimit, source, "store refused the request", err)
		}
		return "", apperrors.NewNetwork(source, "fetch failed", err)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", apperrors.NewNetwork(source, "failed to read body", err)
	}

	c.log.Debug().Int("page", page).Int("bytes", len(data)).Msg("Fetched search page")
	return string(data), nil
}

// AppDetails returns authoritative pricing for appID, or ErrNoDetails when the store has none
func (c *StoreClient) AppDetails(ctx context.Context, appID string) (*AppDetails, error) {
	key := fmt.Sprintf(detailsCacheKey, appID)
	if c.cacheSvc != nil {
		var cached AppDetails
		if err := cache.GetJSON(c.cacheSvc, key, &cached); err == nil {
			return &cached, nil
		}
	}

	var envelope detailsEnvelope
	resp, err := c.details.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"appids": appID,
			"cc":     c.cfg.Country,
			"l":      c.cfg.Language,
		}).
		SetResult(&envelope).
		Get(c.cfg.DetailsURL)
	if err != nil {
		return nil, apperrors.NewNetwork("app "+appID, "details request failed", err)
	}
	if resp.IsError() {
		return nil, apperrors.NewNetwork("app "+appID, fmt.Sprintf("details status %d", resp.StatusCode()), nil)
	}

	entry, ok := envelope[appID]
	if !ok || !entry.Success {
		return nil, ErrNoDetails
	}

	details := entry.Data
	if c.cacheSvc != nil && c.cfg.DetailsTTL > 0 {
		if err := cache.SetJSON(c.cacheSvc, key, details, c.cfg.DetailsTTL); err != nil {
			c.log.Debug().Err(err).Str("app_id", appID).Msg("Failed to cache app details")
		}
	}
	return &details, nil
}

// blockFetching records the rate-limit window so later pages fail fast
func (c *StoreClient) blockFetching() {
	if c.cacheSvc == nil || c.cfg.BlockTime <= 0 {
		return
	}
	value := []byte(strconv.Itoa(int(c.cfg.BlockTime / time.Second)))
	if err := c.cacheSvc.Set(rateLimitCacheKey, value, c.cfg.BlockTime); err != nil {
		c.log.Warn().Err(err).Msg("Failed to record rate limit window")
	}
}

// referer is the site root of rawURL
func referer(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
