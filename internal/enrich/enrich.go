// Package enrich fetches per-property detail (gallery images, floorplan,
// description, features) across every source URL a canonical property
// carries, downloads and caches image bytes, and reports which properties
// ended up enriched vs. failed (spec §4.4).
package enrich

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/MarcelCutts/home-finder-sub001/internal/httpx"
	"github.com/MarcelCutts/home-finder-sub001/internal/imagecache"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// Detail is one source's per-property detail payload.
type Detail struct {
	FloorplanURL string
	GalleryURLs  []string
	Description  string
	Features     []string
}

// Capability fetches detail for a single listing URL.
type Capability interface {
	FetchDetail(ctx context.Context, url string) (Detail, error)
}

// Downloader fetches raw image bytes for a URL. Kept separate from
// Capability so tests can stub image fetching independently of detail
// fetching.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Config bounds the enricher's concurrency and pacing (spec §5 defaults).
type Config struct {
	DataDir                string
	MaxConcurrentProperties int64
	MaxConcurrentImages     int64
	InterImageDelay         time.Duration
	MaxAttempts             int
}

// DefaultConfig matches the spec's stated defaults.
var DefaultConfig = Config{
	MaxConcurrentProperties: 5,
	MaxConcurrentImages:     5,
	InterImageDelay:         300 * time.Millisecond,
	MaxAttempts:             3,
}

var hardUnsupportedExtensions = map[string]struct{}{
	".pdf": {}, ".svg": {}, ".html": {}, ".js": {}, ".css": {}, ".json": {}, ".xml": {},
}

// URLAdmissible reports whether url's path extension is allowed. Extensionless
// CDN URLs are allowed; only the hard-unsupported formats are rejected (spec
// §4.4 "URL admissibility").
func URLAdmissible(rawURL string) bool {
	clean := rawURL
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	ext := strings.ToLower(path.Ext(clean))
	_, rejected := hardUnsupportedExtensions[ext]
	return !rejected
}

// ManifestChecker reports whether the store already holds an image manifest
// for a property — part of the skip-if-cached gate (spec §4.4).
type ManifestChecker interface {
	HasImageManifest(uniqueID string) bool
}

// Enricher drives detail fetch + image download for a batch of properties.
type Enricher struct {
	capability Capability
	downloader Downloader
	manifests  ManifestChecker
	cfg        Config
	propSem    *semaphore.Weighted
	imgSem     *semaphore.Weighted
	log        *slog.Logger
}

// New builds an Enricher.
func New(capability Capability, downloader Downloader, manifests ManifestChecker, cfg Config) *Enricher {
	return &Enricher{
		capability: capability,
		downloader: downloader,
		manifests:  manifests,
		cfg:        cfg,
		propSem:    semaphore.NewWeighted(cfg.MaxConcurrentProperties),
		imgSem:     semaphore.NewWeighted(cfg.MaxConcurrentImages),
		log:        slog.With("component", "enrich"),
	}
}

// Outcome is one property's enrichment result.
type Outcome struct {
	UniqueID  string
	Images    []models.PropertyImage
	Floorplan *models.PropertyImage
	Failed    bool
}

// Run enriches every property in the batch concurrently (bounded by
// MaxConcurrentProperties) and returns one Outcome per property, in
// unspecified order.
func (e *Enricher) Run(ctx context.Context, properties []models.CanonicalProperty) []Outcome {
	outcomes := make(chan Outcome, len(properties))
	eg, egCtx := errgroup.WithContext(ctx)

	for _, property := range properties {
		property := property
		eg.Go(func() error {
			if err := e.propSem.Acquire(egCtx, 1); err != nil {
				outcomes <- Outcome{UniqueID: property.UniqueID(), Failed: true}
				return nil
			}
			defer e.propSem.Release(1)
			outcomes <- e.enrichOne(egCtx, property)
			return nil
		})
	}
	_ = eg.Wait()
	close(outcomes)

	results := make([]Outcome, 0, len(properties))
	for o := range outcomes {
		results = append(results, o)
	}
	return results
}

func (e *Enricher) enrichOne(ctx context.Context, property models.CanonicalProperty) Outcome {
	uniqueID := property.UniqueID()

	if e.manifests != nil && e.manifests.HasImageManifest(uniqueID) && imagecache.IsPropertyCached(e.cfg.DataDir, uniqueID) {
		e.log.Debug("enrich_skip_cached", "property", uniqueID)
		return Outcome{UniqueID: uniqueID, Failed: false}
	}

	var floorplan *models.PropertyImage
	galleryURLs := make([]string, 0)
	seenGallery := make(map[string]struct{})
	anySourceSucceeded := false

	for source, sourceURL := range property.SourceURLs {
		detail, err := e.fetchDetail(ctx, sourceURL)
		if err != nil {
			e.log.Warn("enrich_detail_fetch_failed", "property", uniqueID, "source", source, "url", sourceURL, "error", err)
			continue
		}
		anySourceSucceeded = true

		if floorplan == nil && detail.FloorplanURL != "" && URLAdmissible(detail.FloorplanURL) {
			img := e.downloadImage(ctx, uniqueID, source, detail.FloorplanURL, models.ImageFloorplan, 0)
			if img != nil {
				floorplan = img
			}
		}
		for _, galleryURL := range detail.GalleryURLs {
			if !URLAdmissible(galleryURL) {
				continue
			}
			if _, dup := seenGallery[galleryURL]; dup {
				continue
			}
			seenGallery[galleryURL] = struct{}{}
			galleryURLs = append(galleryURLs, galleryURL)
		}
	}

	images := e.downloadGallery(ctx, uniqueID, property.Canonical.Source, galleryURLs)

	if !anySourceSucceeded || (len(images) == 0 && floorplan == nil) {
		return Outcome{UniqueID: uniqueID, Failed: true}
	}

	return Outcome{UniqueID: uniqueID, Images: images, Floorplan: floorplan}
}

func (e *Enricher) fetchDetail(ctx context.Context, url string) (Detail, error) {
	var detail Detail
	err := httpx.Do(ctx, httpx.DefaultRetryConfig, func() error {
		d, err := e.capability.FetchDetail(ctx, url)
		if err != nil {
			return err
		}
		detail = d
		return nil
	})
	return detail, err
}

func (e *Enricher) downloadGallery(ctx context.Context, uniqueID string, source models.PropertySource, urls []string) []models.PropertyImage {
	images := make([]models.PropertyImage, 0, len(urls))
	for i, url := range urls {
		img := e.downloadImage(ctx, uniqueID, source, url, models.ImageGallery, i)
		if img != nil {
			images = append(images, *img)
		}
	}
	return images
}

// downloadImage fetches and caches one image, tolerating per-image failure
// (spec §4.4 "per-image fetch failure is tolerated"). Returns nil on failure.
func (e *Enricher) downloadImage(ctx context.Context, uniqueID string, source models.PropertySource, url string, role models.ImageType, index int) *models.PropertyImage {
	if err := e.imgSem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer e.imgSem.Release(1)

	if e.cfg.InterImageDelay > 0 {
		time.Sleep(e.cfg.InterImageDelay)
	}

	localPath := imagecache.ImagePath(e.cfg.DataDir, uniqueID, url, string(role), index)
	if existing, _ := imagecache.ReadImageBytes(localPath); existing != nil {
		return &models.PropertyImage{URL: url, Source: source, ImageType: role, LocalPath: localPath}
	}

	var data []byte
	err := httpx.Do(ctx, httpx.DefaultRetryConfig, func() error {
		d, err := e.downloader.Download(ctx, url)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		e.log.Warn("enrich_image_download_failed", "property", uniqueID, "url", url, "error", err)
		return nil
	}
	if err := imagecache.SaveImageBytes(localPath, data); err != nil {
		e.log.Warn("enrich_image_cache_write_failed", "property", uniqueID, "url", url, "error", err)
		return nil
	}
	return &models.PropertyImage{URL: url, Source: source, ImageType: role, LocalPath: localPath}
}
