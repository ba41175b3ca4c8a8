package search

import (
	"fmt"
	"math"

	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest is a validated zero-based page index and size.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest rejects negative pages, non-positive or oversized sizes and
// pages whose offset would not fit in an int.
func NewPageRequest(page, size int) (PageRequest, error) {
	details := map[string]string{}
	if size <= 0 {
		details["size"] = "must be greater than 0"
	} else if size > MaxPageSize {
		details["size"] = fmt.Sprintf("must not exceed %d", MaxPageSize)
	}
	if page < 0 {
		details["page"] = "must be greater than or equal to 0"
	} else if _, ok := details["size"]; !ok && page > MaxPage(size) {
		details["page"] = fmt.Sprintf("must not exceed %d", MaxPage(size))
	}
	if len(details) > 0 {
		return PageRequest{}, apperrors.NewValidation("invalid pagination parameters", details)
	}
	return PageRequest{Page: page, Size: size}, nil
}

// MaxPage is the largest page index whose last row offset fits in an int.
func MaxPage(size int) int {
	if size <= 0 {
		return math.MaxInt
	}
	return (math.MaxInt - size) / size
}

// Offset is the number of records before this page.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// Page is the response envelope for a paged listing.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// NewPage wraps one page of content with its metadata.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         req.Page == 0,
		Last:          req.Page+1 >= totalPages,
	}
}

// Map converts the content of a page, keeping its metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, v := range p.Content {
		out[i] = fn(v)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
	}
}
