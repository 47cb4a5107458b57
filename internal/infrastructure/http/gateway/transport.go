package gateway

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// NewHTTPClient returns the base client of every gateway: a fixed timeout,
// an OpenTelemetry transport and transparent brotli/gzip decoding.
func NewHTTPClient(timeout time.Duration, tp trace.TracerProvider) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()

	var opts []otelhttp.Option
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(&decodingTransport{next: base}, opts...),
	}
}

// decodingTransport advertises brotli and gzip and decodes the response.
// Setting Accept-Encoding turns off net/http's own gzip handling, so both
// encodings are handled here.
type decodingTransport struct {
	next http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip")
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), raw: resp.Body}
	case "gzip":
		resp.Body = &decodedBody{Reader: &lazyGzip{raw: resp.Body}, raw: resp.Body}
	default:
		return resp, nil
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (b *decodedBody) Close() error {
	return b.raw.Close()
}

// lazyGzip defers reading the gzip header so an empty body reads as empty.
type lazyGzip struct {
	raw io.Reader
	zr  *gzip.Reader
	err error
}

func (g *lazyGzip) Read(p []byte) (int, error) {
	if g.zr == nil && g.err == nil {
		g.zr, g.err = gzip.NewReader(g.raw)
	}
	if g.err != nil {
		return 0, g.err
	}
	return g.zr.Read(p)
}
