package notion

import (
	"context"
	"fmt"
	"sync"

	"github.com/jomei/notionapi"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.NoteSource = (*Connector)(nil)

// pageSize is the Notion API maximum page size.
const pageSize = 100

// Connector fetches notes from a Notion database. Each page in the
// database is one note; the body is the plain text of its blocks.
type Connector struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
	mu         sync.Mutex
	closed     bool
}

// New creates a Notion connector for the given integration token and
// database.
func New(token, databaseID string) *Connector {
	return &Connector{
		client:     notionapi.NewClient(notionapi.Token(token)),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "notion"
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsWatch:      false, // No webhooks in CLI
		SupportsValidation: true,
		SupportsPagination: true,
	}
}

// Validate checks the token can reach the configured database.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrSourceUnavailable
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if _, err := c.client.Database.Get(ctx, c.databaseID); err != nil {
		return fmt.Errorf("%w: database %s: %w", domain.ErrSourceUnavailable, c.databaseID, err)
	}
	return nil
}

// ListMeta queries the database and returns metadata for every page,
// following pagination cursors until exhausted or the limit is hit.
func (c *Connector) ListMeta(ctx context.Context, limit int) ([]domain.NoteMeta, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrSourceUnavailable
	}
	c.mu.Unlock()

	pages, err := c.listPages(ctx, limit)
	if err != nil {
		return nil, err
	}

	metas := make([]domain.NoteMeta, 0, len(pages))
	for _, page := range pages {
		metas = append(metas, pageMeta(page))
	}
	return metas, nil
}

// Fetch streams the content of the named notes. The database is
// queried once to resolve titles to pages; block content is then
// fetched per page. Per-page failures go to the error channel.
func (c *Connector) Fetch(ctx context.Context, titles []string) (<-chan domain.Note, <-chan error) {
	notesChan := make(chan domain.Note)
	errsChan := make(chan error, len(titles))

	go func() {
		defer close(notesChan)
		defer close(errsChan)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			errsChan <- domain.ErrSourceUnavailable
			return
		}
		c.mu.Unlock()

		pages, err := c.listPages(ctx, 0)
		if err != nil {
			errsChan <- err
			return
		}

		byTitle := make(map[string]notionapi.Page, len(pages))
		for _, page := range pages {
			title := pageTitle(page)
			if _, seen := byTitle[title]; !seen {
				byTitle[title] = page
			}
		}

		for _, title := range titles {
			select {
			case <-ctx.Done():
				return
			default:
			}

			page, ok := byTitle[title]
			if !ok {
				errsChan <- &driven.FetchError{Title: title, Err: domain.ErrNotFound}
				continue
			}

			body, err := c.pageBody(ctx, page)
			if err != nil {
				errsChan <- &driven.FetchError{Title: title, Err: err}
				continue
			}

			meta := pageMeta(page)
			note := domain.Note{
				Title:      title,
				Body:       body,
				CreatedAt:  meta.CreatedAt,
				ModifiedAt: meta.ModifiedAt,
			}

			select {
			case <-ctx.Done():
				return
			case notesChan <- note:
			}
		}
	}()

	return notesChan, errsChan
}

// Watch is not supported; the Notion API has no push channel usable
// from a CLI.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.NoteMeta, error) {
	return nil, fmt.Errorf("notion: watch not supported")
}

// Close marks the connector closed. The underlying HTTP client holds
// no resources that need releasing.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// listPages drains the database query cursor. A limit of 0 means all
// pages.
func (c *Connector) listPages(ctx context.Context, limit int) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		resp, err := c.client.Database.Query(ctx, c.databaseID, &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", c.databaseID, err)
		}

		pages = append(pages, resp.Results...)
		if limit > 0 && len(pages) >= limit {
			return pages[:limit], nil
		}
		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

// pageBody fetches the page's block children and renders them as
// plain text.
func (c *Connector) pageBody(ctx context.Context, page notionapi.Page) (string, error) {
	var blocks []notionapi.Block
	var cursor notionapi.Cursor

	for {
		resp, err := c.client.Block.GetChildren(ctx, notionapi.BlockID(page.ID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return "", fmt.Errorf("get blocks for page %s: %w", page.ID, err)
		}

		blocks = append(blocks, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	return renderBlocks(blocks), nil
}
