package middleware

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DecompressConfig bounds how much a compressed request body may
// expand. The ratio limit is what catches zip bombs that stay under
// the absolute size caps.
type DecompressConfig struct {
	MaxDecompressedSize int64
	MaxCompressedSize   int64
	MaxCompressionRatio float64
	AllowedEncodings    []string
}

// DefaultDecompressConfig allows gzip and zstd bodies up to 10 MB
// compressed, 50 MB inflated, at no more than 100:1.
func DefaultDecompressConfig() *DecompressConfig {
	return &DecompressConfig{
		MaxDecompressedSize: 50 << 20,
		MaxCompressedSize:   10 << 20,
		MaxCompressionRatio: 100,
		AllowedEncodings:    []string{"gzip", "zstd"},
	}
}

// Decompress inflates request bodies declared via Content-Encoding.
// Place it before BodyLimit so the limit applies to the inflated
// size. A nil config uses DefaultDecompressConfig.
func Decompress(cfg *DecompressConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = DefaultDecompressConfig()
	}

	allowed := make(map[string]bool, len(cfg.AllowedEncodings))
	for _, enc := range cfg.AllowedEncodings {
		allowed[strings.ToLower(enc)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}

			encoding := strings.ToLower(r.Header.Get("Content-Encoding"))
			if encoding == "" || encoding == "identity" {
				next.ServeHTTP(w, r)
				return
			}
			if !allowed[encoding] {
				http.Error(w, fmt.Sprintf("unsupported Content-Encoding: %s", encoding),
					http.StatusUnsupportedMediaType)
				return
			}

			body, err := inflate(r.Body, encoding, cfg)
			if err != nil {
				// Generic message; the limits themselves are not for clients to probe.
				http.Error(w, "invalid compressed request body", http.StatusBadRequest)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Del("Content-Encoding")

			next.ServeHTTP(w, r)
		})
	}
}

// inflate reads the whole compressed body, then streams it back out
// in chunks so the size and ratio limits are enforced incrementally
// instead of after the fact.
func inflate(body io.ReadCloser, encoding string, cfg *DecompressConfig) ([]byte, error) {
	defer body.Close()

	compressed, err := io.ReadAll(io.LimitReader(body, cfg.MaxCompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read compressed body: %w", err)
	}
	if int64(len(compressed)) > cfg.MaxCompressedSize {
		return nil, fmt.Errorf("compressed size exceeds limit of %d bytes", cfg.MaxCompressedSize)
	}
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	var reader io.Reader
	switch encoding {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gr.Close()
		reader = gr
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(compressed),
			zstd.WithDecoderMaxMemory(uint64(cfg.MaxDecompressedSize)),
			zstd.WithDecoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}

	var out bytes.Buffer
	chunk := make([]byte, 64<<10)
	var total int64

	for {
		n, readErr := reader.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > cfg.MaxDecompressedSize {
				return nil, fmt.Errorf("decompressed size exceeds limit of %d bytes", cfg.MaxDecompressedSize)
			}
			if ratio := float64(total) / float64(len(compressed)); ratio > cfg.MaxCompressionRatio {
				return nil, fmt.Errorf("compression ratio %.1f exceeds limit %.1f", ratio, cfg.MaxCompressionRatio)
			}
			out.Write(chunk[:n])
		}
		if readErr == io.EOF {
			return out.Bytes(), nil
		}
		if readErr != nil {
			return nil, fmt.Errorf("decompress: %w", readErr)
		}
	}
}
