// Package adapters provides the concrete, HTTP-backed implementations of the
// external capability boundaries spec §1 names as explicit non-goals (per-
// platform scrapers, the visual quality analyzer, the commute-time
// estimator, and raw image download). Each adapter here is a thin JSON-over-
// HTTP client; the platforms/analyzer/estimator behind the URLs are the
// actual non-goal, not the transport. Grounded on tarsy's
// pkg/runbook.GitHubClient (http.Client with a fixed timeout, context-bound
// requests, JSON decode of the response body).
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcelCutts/home-finder-sub001/internal/analyzer"
	"github.com/MarcelCutts/home-finder-sub001/internal/commute"
	"github.com/MarcelCutts/home-finder-sub001/internal/enrich"
	"github.com/MarcelCutts/home-finder-sub001/internal/errs"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
	"github.com/MarcelCutts/home-finder-sub001/internal/scrape"
)

const defaultTimeout = 30 * time.Second

// ScrapeAdapter hits one platform's JSON search endpoint and its per-listing
// detail endpoint, satisfying both scrape.Adapter and enrich.Capability.
type ScrapeAdapter struct {
	source     models.PropertySource
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewScrapeAdapter builds an adapter for one platform, identified by source
// and its configured API base URL (spec §6 "scrape(source, criteria, area)").
func NewScrapeAdapter(source models.PropertySource, baseURL string) *ScrapeAdapter {
	return &ScrapeAdapter{
		source:     source,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        slog.With("component", "scrape_adapter", "source", source),
	}
}

// Source identifies which platform this adapter scrapes.
func (a *ScrapeAdapter) Source() models.PropertySource { return a.source }

// Scrape fetches every listing for a search area from the platform's search
// endpoint.
func (a *ScrapeAdapter) Scrape(ctx context.Context, area string) ([]models.Listing, error) {
	endpoint := fmt.Sprintf("%s/search?area=%s", a.baseURL, url.QueryEscape(area))
	var listings []models.Listing
	if err := a.getJSON(ctx, endpoint, &listings); err != nil {
		return nil, fmt.Errorf("adapters: scrape %s/%s: %w", a.source, area, err)
	}
	return listings, nil
}

// FetchDetail fetches a listing's per-property detail page.
func (a *ScrapeAdapter) FetchDetail(ctx context.Context, listingURL string) (enrich.Detail, error) {
	endpoint := fmt.Sprintf("%s/detail?url=%s", a.baseURL, url.QueryEscape(listingURL))
	var detail enrich.Detail
	if err := a.getJSON(ctx, endpoint, &detail); err != nil {
		return enrich.Detail{}, fmt.Errorf("adapters: fetch detail %s: %w", listingURL, err)
	}
	return detail, nil
}

func (a *ScrapeAdapter) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// ImageDownloader fetches raw image bytes over HTTP, impersonating a
// browser user-agent since platform CDNs commonly reject bare Go clients
// (spec §6 "download_image: HTTP client with appropriate impersonation for
// anti-bot origins").
type ImageDownloader struct {
	httpClient *http.Client
	userAgent  string
}

// NewImageDownloader builds a Downloader with a browser-like User-Agent.
func NewImageDownloader() *ImageDownloader {
	return &ImageDownloader{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "Mozilla/5.0 (compatible; home-finder-sub001/1.0)",
	}
}

// Download fetches the bytes at url.
func (d *ImageDownloader) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", imageURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// AnalyzerAdapter calls an external visual quality analyzer API, satisfying
// analyzer.Capability.
type AnalyzerAdapter struct {
	baseURL    string
	apiKey     string
	maxImages  int
	httpClient *http.Client
}

// NewAnalyzerAdapter builds an adapter for the analyzer API (spec §6
// "analyzer_api_key, analyzer_max_images").
func NewAnalyzerAdapter(baseURL, apiKey string, maxImages int) *AnalyzerAdapter {
	return &AnalyzerAdapter{
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxImages:  maxImages,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type analyzeRequest struct {
	Property models.CanonicalProperty `json:"property"`
	ImageURLs []string                `json:"image_urls"`
}

// Analyze calls the analyzer API with the property and up to maxImages of
// its cached image URLs, mapping a 503 response onto errs.ErrAPIUnavailable
// (spec §6 "analyze ... may raise APIUnavailable").
func (a *AnalyzerAdapter) Analyze(ctx context.Context, property models.CanonicalProperty) (*models.QualityAnalysis, error) {
	imageURLs := make([]string, 0, len(property.Images))
	for i, img := range property.Images {
		if i >= a.maxImages {
			break
		}
		imageURLs = append(imageURLs, img.URL)
	}

	payload, err := json.Marshal(analyzeRequest{Property: property, ImageURLs: imageURLs})
	if err != nil {
		return nil, fmt.Errorf("adapters: marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("adapters: create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adapters: analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.ErrAPIUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adapters: analyzer returned HTTP %d", resp.StatusCode)
	}

	var analysis models.QualityAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("adapters: decode analyzer response: %w", err)
	}
	return &analysis, nil
}

// CommuteAdapter calls an external commute-time estimator API, satisfying
// commute.Capability.
type CommuteAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewCommuteAdapter builds an adapter for the commute API.
func NewCommuteAdapter(baseURL, apiKey string) *CommuteAdapter {
	return &CommuteAdapter{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type commuteResponse struct {
	Minutes int `json:"minutes"`
}

// CommuteMinutes calls the estimator for a single origin/destination/mode
// triple. internal/commute.Cache is the layer that batches repeat calls by
// outcode; this adapter is the single-call transport underneath it.
func (a *CommuteAdapter) CommuteMinutes(ctx context.Context, origin, destination string, mode models.TransportMode) (int, error) {
	endpoint := fmt.Sprintf("%s/commute?origin=%s&destination=%s&mode=%s",
		a.baseURL, url.QueryEscape(origin), url.QueryEscape(destination), url.QueryEscape(string(mode)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("adapters: create commute request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("adapters: commute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("adapters: commute API returned HTTP %d", resp.StatusCode)
	}

	var body commuteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("adapters: decode commute response: %w", err)
	}
	return body.Minutes, nil
}

// MultiCapability routes enrich's single FetchDetail(url) boundary to the
// right platform's ScrapeAdapter, since enrich.Capability carries no source
// field alongside the URL (spec §4.4 iterates property.SourceURLs keyed by
// platform but the fetch itself is URL-only).
type MultiCapability struct {
	bySource map[models.PropertySource]enrich.Capability
}

// NewMultiCapability builds a router over one enrich.Capability per
// platform.
func NewMultiCapability(bySource map[models.PropertySource]enrich.Capability) *MultiCapability {
	return &MultiCapability{bySource: bySource}
}

// FetchDetail dispatches to the adapter whose platform hostname appears in
// url.
func (m *MultiCapability) FetchDetail(ctx context.Context, detailURL string) (enrich.Detail, error) {
	source, err := classifySource(detailURL)
	if err != nil {
		return enrich.Detail{}, fmt.Errorf("adapters: %w", err)
	}
	capability, ok := m.bySource[source]
	if !ok {
		return enrich.Detail{}, fmt.Errorf("adapters: no capability configured for source %s", source)
	}
	return capability.FetchDetail(ctx, detailURL)
}

var sourceHostnames = map[models.PropertySource]string{
	models.SourceRightmove:   "rightmove.co.uk",
	models.SourceZoopla:      "zoopla.co.uk",
	models.SourceOpenRent:    "openrent.co.uk",
	models.SourceOnTheMarket: "onthemarket.com",
}

func classifySource(rawURL string) (models.PropertySource, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url %q: %w", rawURL, err)
	}
	for source, hostname := range sourceHostnames {
		if strings.Contains(parsed.Host, hostname) {
			return source, nil
		}
	}
	return "", fmt.Errorf("unrecognised listing host %q", parsed.Host)
}

var (
	_ scrape.Adapter      = (*ScrapeAdapter)(nil)
	_ enrich.Capability   = (*ScrapeAdapter)(nil)
	_ enrich.Capability   = (*MultiCapability)(nil)
	_ enrich.Downloader   = (*ImageDownloader)(nil)
	_ analyzer.Capability = (*AnalyzerAdapter)(nil)
	_ commute.Capability  = (*CommuteAdapter)(nil)
)
