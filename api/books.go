package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 3

	minPublishedYear = 1000
)

// Book is a catalog entry. Price and year may arrive as numbers or strings.
type Book struct {
	ID            int    `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Author        string `json:"author" yaml:"author"`
	Price         Number `json:"price" yaml:"price"`
	PublishedYear Number `json:"published_year" yaml:"published_year"`
}

// NewBook is the create/update payload.
type NewBook struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Price         float64 `json:"price"`
	PublishedYear int     `json:"published_year"`
}

// Validate checks the payload before it is sent.
func (b NewBook) Validate(now time.Time) error {
	var errs []error
	if strings.TrimSpace(b.Title) == "" {
		errs = append(errs, apperrors.Wrapf(apperrors.ErrInvalidBook, "title is required"))
	}
	if strings.TrimSpace(b.Author) == "" {
		errs = append(errs, apperrors.Wrapf(apperrors.ErrInvalidBook, "author is required"))
	}
	if b.Price <= 0 {
		errs = append(errs, apperrors.Wrapf(apperrors.ErrInvalidBook, "price must be greater than 0"))
	}
	if b.PublishedYear < minPublishedYear || b.PublishedYear > now.Year() {
		errs = append(errs, apperrors.Wrapf(apperrors.ErrInvalidBook, "published year must be between %d and %d", minPublishedYear, now.Year()))
	}
	return apperrors.Join(errs...)
}

type Pagination struct {
	Page       int  `json:"page" yaml:"page"`
	PageSize   int  `json:"page_size" yaml:"page_size"`
	Total      int  `json:"total" yaml:"total"`
	TotalPages int  `json:"total_pages" yaml:"total_pages"`
	HasNext    bool `json:"has_next" yaml:"has_next"`
	HasPrev    bool `json:"has_prev" yaml:"has_prev"`
}

type BookPage struct {
	Data       []Book     `json:"data" yaml:"data"`
	Pagination Pagination `json:"pagination" yaml:"pagination"`
}

// Query selects a page of books. Zero values fall back to page 1, limit 3.
type Query struct {
	Page   int
	Limit  int
	Author string
}

func (q Query) values() url.Values {
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if q.Author != "" {
		v.Set("author", q.Author)
	}
	return v
}

// BookAPI wraps the book endpoints. Its client is expected to carry the auth
// pipeline.
type BookAPI struct {
	client *Client
}

func NewBookAPI(client *Client) *BookAPI {
	return &BookAPI{client: client}
}

func (b *BookAPI) GetBooks(ctx context.Context, q Query) (BookPage, error) {
	var page BookPage
	if err := b.client.do(ctx, http.MethodGet, "/books", q.values(), nil, &page); err != nil {
		return BookPage{}, err
	}
	return page, nil
}

func (b *BookAPI) CreateBook(ctx context.Context, book NewBook) (Book, error) {
	var created Book
	if err := b.client.do(ctx, http.MethodPost, "/books", nil, book, &created); err != nil {
		return Book{}, err
	}
	return created, nil
}

func (b *BookAPI) UpdateBook(ctx context.Context, id int, book NewBook) (Book, error) {
	var updated Book
	if err := b.client.do(ctx, http.MethodPut, bookPath(id), nil, book, &updated); err != nil {
		return Book{}, err
	}
	return updated, nil
}

func (b *BookAPI) DeleteBook(ctx context.Context, id int) error {
	return b.client.do(ctx, http.MethodDelete, bookPath(id), nil, nil, nil)
}

func bookPath(id int) string {
	return "/books/" + strconv.Itoa(id)
}
