// ABOUTME: Resolves note image references into compact JPEG data for embedding.
// ABOUTME: Decodes data URIs and URLs, downscales, re-encodes, and skips failures.

package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/charmbracelet/log"
	"github.com/harper/eureka/internal/models"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxWidth    = 800
	DefaultQuality     = 80
	DefaultTimeout     = 7 * time.Second
	DefaultConcurrency = 4

	maxDownloadBytes = 20 << 20
)

// ErrInvalidSource is returned for references that are neither image data
// URIs nor http(s) URLs.
var ErrInvalidSource = errors.New("not an embeddable image reference")

// ResolveError reports why one image was skipped.
type ResolveError struct {
	Source string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve image %s: %v", shorten(e.Source), e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Image is a re-encoded JPEG ready to embed.
type Image struct {
	Source string
	Data   []byte
	Width  int
	Height int
}

// Resolver turns image references into Images.
type Resolver struct {
	client      *http.Client
	maxWidth    int
	quality     int
	timeout     time.Duration
	concurrency int
	logger      *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithMaxWidth caps the output width in pixels.
func WithMaxWidth(px int) Option {
	return func(r *Resolver) {
		if px > 0 {
			r.maxWidth = px
		}
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(r *Resolver) {
		if q >= 1 && q <= 100 {
			r.quality = q
		}
	}
}

// WithTimeout bounds each image resolution.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithConcurrency bounds how many images resolve at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger used for skipped images.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver with the default limits.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:      http.DefaultClient,
		maxWidth:    DefaultMaxWidth,
		quality:     DefaultQuality,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAll resolves srcs concurrently and returns the images that
// succeeded, in source order. It returns only after every resolution has
// settled. The only error is ctx's, when the caller cancelled.
func (r *Resolver) ResolveAll(ctx context.Context, srcs []string) ([]*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]*Image, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			img, err := r.Resolve(gctx, src)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("skipping image", "err", err)
				return nil
			}
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*Image, 0, len(results))
	for _, img := range results {
		if img != nil {
			out = append(out, img)
		}
	}
	return out, nil
}

// Resolve loads, downscales and re-encodes one image within the timeout.
func (r *Resolver) Resolve(ctx context.Context, src string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		img *Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := r.resolve(ctx, src)
		done <- result{img, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, &ResolveError{Source: src, Err: res.err}
		}
		return res.img, nil
	case <-ctx.Done():
		return nil, &ResolveError{Source: src, Err: ctx.Err()}
	}
}

func (r *Resolver) resolve(ctx context.Context, src string) (*Image, error) {
	var (
		raw []byte
		err error
	)
	switch models.ClassifyImage(src) {
	case models.ImageDataURI:
		raw, err = decodeDataURI(src)
	case models.ImageRemote:
		raw, err = r.download(ctx, src)
	default:
		return nil, ErrInvalidSource
	}
	if err != nil {
		return nil, err
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := r.scale(decoded)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	b := out.Bounds()
	return &Image{Source: src, Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// scale flattens src onto white and shrinks it to at most maxWidth wide.
func (r *Resolver) scale(src image.Image) image.Image {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if w > r.maxWidth {
		h = max(1, h*r.maxWidth/w)
		w = r.maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == sb.Dx() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	}
	return dst
}

func (r *Resolver) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("download: larger than %d bytes", maxDownloadBytes)
	}
	return data, nil
}

// decodeDataURI returns the payload of a data:image/...;base64, URI.
func decodeDataURI(src string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(src), ",")
	if !ok {
		return nil, ErrInvalidSource
	}
	if !strings.HasSuffix(header, ";base64") {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("data uri: %w", err)
		}
		return []byte(decoded), nil
	}
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("data uri: %w", err)
	}
	return data, nil
}

func shorten(s string) string {
	if len(s) > 48 {
		return s[:48] + "…"
	}
	return s
}
