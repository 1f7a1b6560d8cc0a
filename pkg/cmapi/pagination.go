package cmapi

import (
	"context"
	"iter"
	"net/url"
	"strconv"
)

// DefaultPageLimit is the page size used when none is given.
const DefaultPageLimit = 20

// PageCursor identifies a page by zero-based offset and size.
type PageCursor struct {
	Start int
	Limit int
}

// Values returns the cursor as start/limit query parameters.
func (c PageCursor) Values() url.Values {
	values := url.Values{}
	values.Set("start", strconv.Itoa(c.Start))

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	values.Set("limit", strconv.Itoa(limit))

	return values
}

// after returns the cursor of the page following one holding count items.
func (c PageCursor) after(info PageInfo, count int) PageCursor {
	next := PageCursor{
		Start: c.Start + count,
		Limit: c.Limit,
	}

	if info.Next != nil && *info.Next > c.Start {
		next.Start = *info.Next
	}

	if info.Limit > 0 {
		next.Limit = info.Limit
	}

	return next
}

// PageFetcher retrieves the page at cursor.
type PageFetcher[T any] func(ctx context.Context, cursor PageCursor) (*Page[T], error)

type paginatorState int

const (
	// stateBuffered: items may remain in the buffer; an empty buffer means fetch next.
	stateBuffered paginatorState = iota
	// stateDone: an empty page was seen.
	stateDone
	// stateFailed: the last fetch returned an error.
	stateFailed
)

type paginatorConfig struct {
	logger Logger
}

// PaginatorOption configures a Paginator.
type PaginatorOption func(*paginatorConfig)

// WithPaginatorLogger sets the logger that receives fetch failures.
func WithPaginatorLogger(logger Logger) PaginatorOption {
	return func(c *paginatorConfig) {
		c.logger = logger
	}
}

// Paginator is a forward-only, single-pass sequence over a paged collection.
// When its buffer runs empty it makes exactly one attempt to fetch the next page.
// A failed fetch ends the sequence instead of surfacing an error; Err reports it.
// A Paginator is not safe for concurrent use.
type Paginator[T any] struct {
	ctx    context.Context
	fetch  PageFetcher[T]
	logger Logger

	next   PageCursor
	buffer []T
	state  paginatorState
	err    error
	yields int
}

// NewPaginator creates a paginator from an already fetched first page and the
// cursor that produced it.
func NewPaginator[T any](ctx context.Context, first *Page[T], cursor PageCursor, fetch PageFetcher[T], opts ...PaginatorOption) *Paginator[T] {
	config := &paginatorConfig{}
	for _, opt := range opts {
		opt(config)
	}

	p := &Paginator[T]{
		ctx:    ctx,
		fetch:  fetch,
		logger: config.logger,
		next:   cursor,
	}
	p.load(first)

	return p
}

func (p *Paginator[T]) load(page *Page[T]) {
	if page == nil || len(page.Items) == 0 {
		p.buffer = nil
		p.state = stateDone

		return
	}

	p.buffer = append(p.buffer[:0:0], page.Items...)
	p.next = p.next.after(page.Info, len(page.Items))
	p.state = stateBuffered
}

// advance makes sure the buffer holds an item, fetching one page if needed.
// It is the only place where the paginator changes state.
func (p *Paginator[T]) advance() bool {
	if p.state != stateBuffered {
		return false
	}

	if len(p.buffer) > 0 {
		return true
	}

	page, err := p.fetchPage()
	if err != nil {
		p.err = err
		p.buffer = nil
		p.state = stateFailed

		if p.logger != nil {
			p.logger.Warn("page fetch failed, ending iteration", map[string]interface{}{
				"start": p.next.Start,
				"limit": p.next.Limit,
				"items": p.yields,
				"error": err.Error(),
			})
		}

		return false
	}

	p.load(page)

	return p.state == stateBuffered
}

func (p *Paginator[T]) fetchPage() (*Page[T], error) {
	if p.ctx != nil {
		err := p.ctx.Err()
		if err != nil {
			return nil, err
		}
	}

	return p.fetch(p.ctx, p.next)
}

// HasNext reports whether another item is available, fetching the next page
// when the buffer is empty.
func (p *Paginator[T]) HasNext() bool {
	return p.advance()
}

// Next returns the next item, or ErrNoMoreItems once the sequence has ended.
func (p *Paginator[T]) Next() (T, error) {
	var zero T

	if !p.advance() {
		return zero, ErrNoMoreItems
	}

	item := p.buffer[0]
	p.buffer[0] = zero
	p.buffer = p.buffer[1:]
	p.yields++

	return item, nil
}

// Err returns the fetch failure that ended the sequence, or nil if it ended
// because the collection was exhausted (or has not ended yet).
func (p *Paginator[T]) Err() error {
	return p.err
}

// Items returns the remaining items as an iterator.
func (p *Paginator[T]) Items() iter.Seq[T] {
	return func(yield func(T) bool) {
		for p.advance() {
			item, _ := p.Next()
			if !yield(item) {
				return
			}
		}
	}
}

// All collects the remaining items.
func (p *Paginator[T]) All() []T {
	var items []T
	for item := range p.Items() {
		items = append(items, item)
	}

	return items
}

// ForEach calls fn for each remaining item, stopping at the first error.
func (p *Paginator[T]) ForEach(fn func(T) error) error {
	for item := range p.Items() {
		err := fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}
