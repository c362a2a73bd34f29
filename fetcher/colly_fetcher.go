package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gocolly/colly/v2"
)

// CollyOptions tunes the colly collector
type CollyOptions struct {
	UserAgent   string
	Parallelism int
	Delay       time.Duration
	Timeout     time.Duration
}

// CollyFetcher implements the Fetcher interface using colly. One parent
// collector is shared by every call so cookies and limits apply run-wide.
type CollyFetcher struct {
	collector *colly.Collector
	logger    *log.Logger
}

// NewCollyFetcher creates a new CollyFetcher instance
func NewCollyFetcher(opts CollyOptions, logger *log.Logger) (*CollyFetcher, error) {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		// listing pages are fetched twice when refetch_first_page is on,
		// and repeated runs in one process revisit everything
		colly.AllowURLRevisit(),
	)
	// a 404 on a complex's parking page is an answer, not a failure
	c.ParseHTTPErrorResponse = true

	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       opts.Delay,
	}); err != nil {
		return nil, fmt.Errorf("failed to set limit rule: %w", err)
	}

	c.OnRequest(func(r *colly.Request) {
		logger.Debug("fetching", "url", r.URL.String())
	})

	return &CollyFetcher{
		collector: c,
		logger:    logger,
	}, nil
}

// Fetch implements the Fetcher interface
func (cf *CollyFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// a clone inherits limits and cookies but gets its own callbacks
	c := cf.collector.Clone()
	c.Context = ctx

	var resp *Response
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		resp = &Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("request %s failed: %w", r.Request.URL, err)
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", url, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if resp == nil {
		return nil, fmt.Errorf("no response received from %s", url)
	}

	cf.logger.Debug("fetched", "url", resp.URL, "status", resp.StatusCode, "bytes", len(resp.Body))
	return resp, nil
}
