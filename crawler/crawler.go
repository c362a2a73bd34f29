// Package crawler walks ndv.ru listing pages and turns them into records.
//
// Every listing kind follows the same walk: fetch the seed page, read the
// paginator, fetch each "?page=N" and run a page extractor over it. Parking
// is crawled per building complex and needs one detail page per space;
// those detail fetches run on a bounded worker pool.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"ndv-scraper/config"
	"ndv-scraper/fetcher"
	"ndv-scraper/models"
	"ndv-scraper/parser"
)

// Kind selects which listings a run collects
type Kind string

const (
	KindFlats   Kind = "flats"
	KindParking Kind = "parking"
)

// AllKinds is the default run: flats first, then parking
var AllKinds = []Kind{KindFlats, KindParking}

// ParseKind validates a kind name given on the command line
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFlats, KindParking:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown listing kind %q (want flats or parking)", s)
}

// Options configures a Crawler
type Options struct {
	Site config.SiteConfig
	// Workers bounds concurrent parking detail fetches
	Workers int
	// RefetchFirstPage re-requests "?page=1" after the seed page
	RefetchFirstPage bool
}

// Stats counts what a run did
type Stats struct {
	Pages            int
	Complexes        int
	SkippedComplexes int
	Flats            int
	Parking          int
	MalformedTiles   int
}

// Crawler drives the fetch-extract walk. The fetcher is shared by every
// step and must be safe for concurrent use.
type Crawler struct {
	fetcher fetcher.Fetcher
	opts    Options
	logger  *log.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Crawler
func New(f fetcher.Fetcher, opts Options, logger *log.Logger) *Crawler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Crawler{
		fetcher: f,
		opts:    opts,
		logger:  logger,
	}
}

// Stats returns a snapshot of the counters
func (c *Crawler) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Crawler) count(update func(*Stats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}

// Run crawls the requested kinds in order and concatenates their records.
// On failure it returns what was collected so far along with the error.
func (c *Crawler) Run(ctx context.Context, kinds []Kind) ([]models.Record, error) {
	if len(kinds) == 0 {
		kinds = AllKinds
	}

	var records []models.Record
	for _, kind := range kinds {
		var (
			batch []models.Record
			err   error
		)
		switch kind {
		case KindFlats:
			batch, err = c.CrawlFlats(ctx)
		case KindParking:
			var complexes []models.BuildingComplex
			complexes, err = c.DiscoverComplexes(ctx)
			if err == nil {
				batch, err = c.CrawlParking(ctx, complexes)
			}
		default:
			err = fmt.Errorf("unknown listing kind %q", kind)
		}
		records = append(records, batch...)
		if err != nil {
			return records, fmt.Errorf("%s crawl failed: %w", kind, err)
		}
	}
	return records, nil
}

// DiscoverComplexes collects every building complex from the directory
func (c *Crawler) DiscoverComplexes(ctx context.Context) ([]models.BuildingComplex, error) {
	complexes, err := Walk(ctx, c, c.opts.Site.DirectoryURL(), func(_ context.Context, doc *goquery.Document) ([]models.BuildingComplex, error) {
		return parser.ParseComplexes(doc, c.opts.Site.BaseURL), nil
	})
	if err != nil {
		return complexes, err
	}

	c.count(func(s *Stats) { s.Complexes = len(complexes) })
	c.logger.Info("building complexes discovered", "count", len(complexes))
	return complexes, nil
}

// CrawlFlats collects every flat and apartment tile. Tiles whose name has
// no readable area or room count are logged and left out.
func (c *Crawler) CrawlFlats(ctx context.Context) ([]models.Record, error) {
	records, err := Walk(ctx, c, c.opts.Site.FlatsURL(), func(_ context.Context, doc *goquery.Document) ([]models.Record, error) {
		records, errs := parser.ParseFlats(doc)
		for _, tileErr := range errs {
			c.logger.Warn("skipping flat tile", "err", tileErr)
		}
		c.count(func(s *Stats) {
			s.Flats += len(records)
			s.MalformedTiles += len(errs)
		})
		return records, nil
	})
	c.logger.Info("flats collected", "count", len(records))
	return records, err
}

// CrawlParking collects the parking spaces of every complex that has a
// parking page with at least one offer.
func (c *Crawler) CrawlParking(ctx context.Context, complexes []models.BuildingComplex) ([]models.Record, error) {
	var records []models.Record
	for _, complex := range complexes {
		batch, err := c.crawlComplexParking(ctx, complex)
		records = append(records, batch...)
		if err != nil {
			return records, fmt.Errorf("complex %q: %w", complex.Name, err)
		}
	}
	c.logger.Info("parking spaces collected", "count", len(records))
	return records, nil
}

func (c *Crawler) crawlComplexParking(ctx context.Context, complex models.BuildingComplex) ([]models.Record, error) {
	seed := complex.URL + c.opts.Site.ParkingSuffix
	logger := c.logger.With("complex", complex.Name)

	resp, err := c.fetch(ctx, seed)
	if err != nil {
		return nil, err
	}
	if resp.NotFound() {
		logger.Debug("no parking page")
		c.count(func(s *Stats) { s.SkippedComplexes++ })
		return nil, nil
	}
	doc, err := documentOf(resp)
	if err != nil {
		return nil, err
	}

	offers, ok := parser.OfferCount(doc)
	if !ok {
		logger.Warn("parking page has no offer counter")
		c.count(func(s *Stats) { s.SkippedComplexes++ })
		return nil, nil
	}
	if offers == 0 {
		logger.Debug("no parking offers")
		c.count(func(s *Stats) { s.SkippedComplexes++ })
		return nil, nil
	}

	logger.Info("crawling parking", "offers", offers)
	return walkFrom(ctx, c, seed, doc, func(ctx context.Context, page *goquery.Document) ([]models.Record, error) {
		return c.parkingDetails(ctx, complex, parser.ParseParkingLinks(page, c.opts.Site.BaseURL))
	})
}

// parkingDetails fetches detail pages on at most Workers goroutines. Each
// record lands at its link's index, so output order follows the page.
func (c *Crawler) parkingDetails(ctx context.Context, complex models.BuildingComplex, links []string) ([]models.Record, error) {
	records := make([]models.Record, len(links))

	err := parMap(ctx, c.opts.Workers, len(links), func(ctx context.Context, i int) error {
		doc, err := c.fetchDocument(ctx, links[i])
		if err != nil {
			return err
		}
		records[i] = parser.ParseParkingDetail(doc, complex.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.count(func(s *Stats) { s.Parking += len(records) })
	return records, nil
}

// Extractor turns one parsed listing page into items
type Extractor[T any] func(ctx context.Context, doc *goquery.Document) ([]T, error)

// Walk fetches seed, resolves its paginator and runs extract over every
// listing page. A page without a paginator is the whole listing.
func Walk[T any](ctx context.Context, c *Crawler, seed string, extract Extractor[T]) ([]T, error) {
	doc, err := c.fetchDocument(ctx, seed)
	if err != nil {
		return nil, err
	}
	return walkFrom(ctx, c, seed, doc, extract)
}

func walkFrom[T any](ctx context.Context, c *Crawler, seed string, seedDoc *goquery.Document, extract Extractor[T]) ([]T, error) {
	last, ok := parser.LastPage(seedDoc)
	if !ok {
		return extract(ctx, seedDoc)
	}

	c.logger.Debug("paginated listing", "url", seed, "pages", last)

	var items []T
	for i := 1; i <= last; i++ {
		doc := seedDoc
		if i > 1 || c.opts.RefetchFirstPage {
			pageURL, err := PageURL(seed, i)
			if err != nil {
				return items, err
			}
			if doc, err = c.fetchDocument(ctx, pageURL); err != nil {
				return items, err
			}
		}

		batch, err := extract(ctx, doc)
		items = append(items, batch...)
		if err != nil {
			return items, fmt.Errorf("page %d of %s: %w", i, seed, err)
		}
	}
	return items, nil
}

// PageURL sets the page query parameter on a listing URL
func PageURL(seed string, page int) (string, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("invalid listing URL %q: %w", seed, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) (*fetcher.Response, error) {
	resp, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	c.count(func(s *Stats) { s.Pages++ })
	return resp, nil
}

// fetchDocument fetches a page that must exist
func (c *Crawler) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return documentOf(resp)
}

func documentOf(resp *fetcher.Response) (*goquery.Document, error) {
	if err := resp.OK(); err != nil {
		return nil, err
	}
	doc, err := parser.NewDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resp.URL, err)
	}
	return doc, nil
}
