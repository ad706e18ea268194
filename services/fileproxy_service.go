package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/CANDRY15/flashprint/model"
)

// DocumentResolver finds a syllabus by slug, then by id
type DocumentResolver interface {
	Resolve(ctx context.Context, slugOrID string) (*model.Syllabus, error)
}

// ProxiedFile is an open upstream body. Close releases the connection and
// the fetch deadline.
type ProxiedFile struct {
	Document    *model.Syllabus
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// FileProxyService fetches stored files on behalf of clients so the storage
// URL never leaves the server
type FileProxyService struct {
	docs    DocumentResolver
	client  *http.Client
	timeout time.Duration
}

func NewFileProxyService(docs DocumentResolver, client *http.Client, timeout time.Duration) *FileProxyService {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FileProxyService{docs: docs, client: client, timeout: timeout}
}

// Open resolves the document and starts the upstream fetch
func (s *FileProxyService) Open(ctx context.Context, slugOrID string) (*ProxiedFile, error) {
	doc, err := s.docs.Resolve(ctx, slugOrID)
	if err != nil {
		return nil, err
	}
	if !doc.HasFile() {
		return nil, ErrNoFile
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *doc.FileURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &ProxiedFile{
		Document:    doc,
		ContentType: contentType,
		Size:        resp.ContentLength,
		Body:        &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
