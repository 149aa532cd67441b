package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// DocumentService handles document operations
type DocumentService struct {
	client *Client
}

// Upload sends a PDF for summarization
func (s *DocumentService) Upload(ctx context.Context, filename string, r io.Reader) (*Document, error) {
	var doc Document
	if err := s.client.upload(ctx, "/api/v1/documents", filename, r, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns the caller's documents, newest first
func (s *DocumentService) List(ctx context.Context, opts *ListOptions) (*Page[Document], error) {
	path := "/api/v1/documents"
	if opts != nil {
		q := url.Values{}
		if opts.Page > 0 {
			q.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			q.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
	}

	var page Page[Document]
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one document
func (s *DocumentService) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document and its artifacts
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(id), nil, nil)
}

// Retry moves a failed document back to uploaded
func (s *DocumentService) Retry(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/documents/"+url.PathEscape(id)+"/retry", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Summary returns the generated summary
func (s *DocumentService) Summary(ctx context.Context, id string) (*Summary, error) {
	var summary Summary
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id)+"/summary", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// GenerateAudio requests narration of a summarized document
func (s *DocumentService) GenerateAudio(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/documents/"+url.PathEscape(id)+"/audio", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DownloadAudio writes the MP3 explanation to w
func (s *DocumentService) DownloadAudio(ctx context.Context, id string, w io.Writer) (int64, error) {
	return s.client.stream(ctx, "/api/v1/documents/"+url.PathEscape(id)+"/audio?download=true", w)
}

// Entitlements lists what the caller may do with a document
func (s *DocumentService) Entitlements(ctx context.Context, id string) (*Entitlements, error) {
	var ent Entitlements
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id)+"/entitlements", nil, &ent); err != nil {
		return nil, err
	}
	return &ent, nil
}
