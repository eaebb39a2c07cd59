// Package mediafetch downloads referenced media so URI parts can be inlined
// as base64 blobs before translation to providers that only accept inline
// content. Only https URLs are fetched and concurrent fetches of the same URL
// are deduplicated.
package mediafetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/skosovsky/chatform"
)

const (
	// DefaultMaxBodySize is the default limit for media download (10 MiB).
	DefaultMaxBodySize = 10 << 20
)

var (
	// ErrUnsafeScheme is returned when the URL scheme is not https.
	ErrUnsafeScheme = errors.New("mediafetch: only https scheme is allowed")
	// ErrBodyTooLarge is returned when the response exceeds the size limit.
	ErrBodyTooLarge = errors.New("mediafetch: response body exceeds size limit")
	// ErrUnsupportedType is returned when Content-Type does not match the
	// part's declared modality.
	ErrUnsupportedType = errors.New("mediafetch: unsupported content type")
)

// modalityPrefixes maps part modalities to accepted Content-Type prefixes.
// Modalities without an entry accept any type.
var modalityPrefixes = map[string][]string{
	"image": {"image/"},
	"audio": {"audio/"},
	"video": {"video/"},
}

// Fetcher downloads media with a size limit and per-URL request deduplication.
// The zero value is not usable; call New.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	group    singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client. Defaults to http.DefaultClient.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMaxBytes sets the download size limit. Defaults to DefaultMaxBodySize.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// New returns a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{client: http.DefaultClient, maxBytes: DefaultMaxBodySize}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type fetched struct {
	data        []byte
	contentType string
}

// Fetch downloads a URL. Only https is allowed, the response is capped at the
// configured size limit, and the Content-Type must match the modality when
// the modality is recognized. Concurrent calls for the same URL share one
// request; callers must treat the returned bytes as read-only. A caller's
// cancellation abandons its wait without aborting the shared request.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, modality string) ([]byte, string, error) {
	ch := f.group.DoChan(modality+"\x00"+rawURL, func() (any, error) {
		// The request is shared by every caller that joins this key, so it
		// must not carry any single caller's cancellation.
		return f.fetch(context.WithoutCancel(ctx), rawURL, modality)
	})
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, "", res.Err
		}
		v := res.Val.(*fetched)
		return v.data, v.contentType, nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, rawURL, modality string) (*fetched, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("mediafetch: parse URL: %w", err)
	}
	if u.Scheme != "https" {
		return nil, ErrUnsafeScheme
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mediafetch: new request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediafetch: do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mediafetch: status %s", resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if prefixes, ok := modalityPrefixes[modality]; ok && contentType != "" {
		allowed := false
		for _, prefix := range prefixes {
			if strings.HasPrefix(contentType, prefix) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
		}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("mediafetch: read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrBodyTooLarge
	}
	return &fetched{data: data, contentType: contentType}, nil
}

// Inline replaces every URI part in msgs with a base64 blob part by fetching
// its URL. Parts that are not URI parts pass through unchanged, metadata
// included. The input is not modified.
func (f *Fetcher) Inline(ctx context.Context, msgs []chatform.Message) ([]chatform.Message, error) {
	out := make([]chatform.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if len(m.Parts) == 0 {
			continue
		}
		parts := make([]chatform.Part, len(m.Parts))
		for j, p := range m.Parts {
			uri, ok := p.(chatform.URIPart)
			if !ok {
				parts[j] = p
				continue
			}
			data, contentType, err := f.Fetch(ctx, uri.URI, uri.Modality)
			if err != nil {
				return nil, fmt.Errorf("message %d part %d: %w", i, j, err)
			}
			mime := uri.MIMEType
			if mime == "" {
				mime = contentType
			}
			parts[j] = chatform.BlobPart{
				Modality: uri.Modality,
				MIMEType: mime,
				Content:  base64.StdEncoding.EncodeToString(data),
				Meta:     uri.Meta,
			}
		}
		out[i].Parts = parts
	}
	return out, nil
}
