package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/httpclient"
)

// IndexEntry is one result row of a list index
type IndexEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// IndexPage is one page of a list index
type IndexPage struct {
	Count    int64        `json:"count"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
	Results  []IndexEntry `json:"results"`
}

// WalkOptions bounds an index walk
type WalkOptions struct {
	// PageSize is the limit requested per page
	PageSize int
	// MaxPages stops the walk after this many pages. Zero means no cap.
	MaxPages int
	// Limit stops the walk once this many entries were visited. Zero means no limit.
	Limit int
	// PageDelay is waited between consecutive page requests
	PageDelay time.Duration
}

// WalkResult summarizes an index walk
type WalkResult struct {
	// Count is the total reported by the index on its first page
	Count int64
	// Pages is the number of pages fetched
	Pages int
	// Entries is the number of entries handed to the visitor
	Entries int
	// Truncated is true when the walk stopped at MaxPages or Limit before the index ended
	Truncated bool
}

// Walker pages through list indexes
//
//go:generate mockgen -destination=mocks/mock_walker.go -package=mocks github.com/pokemnky/catalog-sync/internal/sources Walker
type Walker interface {
	// Walk visits the entries of kind's index page by page
	Walk(ctx context.Context, kind catalog.Kind, opts WalkOptions, visit func(entries []IndexEntry) error) (WalkResult, error)
}

// Index reads list indexes from the upstream API
type Index struct {
	client  httpclient.Client
	baseURL string
}

var _ Walker = (*Index)(nil)

// NewIndex creates an index reader rooted at baseURL
func NewIndex(client httpclient.Client, baseURL string) *Index {
	return &Index{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// PageURL returns the URL of one index page
func (i *Index) PageURL(kind catalog.Kind, limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return i.baseURL + "/" + string(kind) + "?" + q.Encode()
}

// Page fetches and decodes one index page
func (i *Index) Page(ctx context.Context, pageURL string) (*IndexPage, error) {
	data, err := i.client.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index page %s: %w", pageURL, err)
	}

	var page IndexPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode index page %s: %w", pageURL, err)
	}
	return &page, nil
}

// Walk visits the entries of kind's index. On error the result still reports the pages
// and entries handled before the failure.
func (i *Index) Walk(
	ctx context.Context, kind catalog.Kind, opts WalkOptions, visit func(entries []IndexEntry) error,
) (WalkResult, error) {
	var res WalkResult
	if opts.PageSize <= 0 {
		return res, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}

	next := i.PageURL(kind, opts.PageSize, 0)
	for next != "" {
		if opts.MaxPages > 0 && res.Pages >= opts.MaxPages {
			res.Truncated = true
			break
		}
		if res.Pages > 0 {
			if err := wait(ctx, opts.PageDelay); err != nil {
				return res, err
			}
		}

		page, err := i.Page(ctx, next)
		if err != nil {
			return res, err
		}
		if res.Pages == 0 {
			res.Count = page.Count
		}
		res.Pages++

		entries := page.Results
		if opts.Limit > 0 && res.Entries+len(entries) >= opts.Limit {
			entries = entries[:opts.Limit-res.Entries]
			res.Truncated = page.Next != nil || len(entries) < len(page.Results)
			next = ""
		} else if page.Next != nil {
			next = *page.Next
		} else {
			next = ""
		}

		if len(entries) > 0 {
			if err := visit(entries); err != nil {
				return res, err
			}
			res.Entries += len(entries)
		}

		slog.Debug("Fetched index page", "kind", kind, "page", res.Pages, "entries", len(entries), "count", page.Count)
	}

	return res, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
