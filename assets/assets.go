// Package assets loads the images and page backgrounds a template refers to.
//
// References are data: URIs, file paths below a configured root, or
// http(s) URLs. Loaded bytes are normalised to a format the PDF writer can
// embed: PNG, JPEG and GIF pass through, PDF is kept for page backgrounds,
// and WebP, BMP and TIFF are decoded and re-encoded as PNG.
package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Register decoders for formats that are converted to PNG.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// Type is a normalised asset type.
type Type string

const (
	PNG  Type = "png"
	JPEG Type = "jpg"
	GIF  Type = "gif"
	PDF  Type = "pdf"
)

// MIME returns the asset's media type.
func (t Type) MIME() string {
	switch t {
	case JPEG:
		return "image/jpeg"
	case GIF:
		return "image/gif"
	case PDF:
		return "application/pdf"
	}
	return "image/png"
}

// Asset is a loaded, normalised asset.
type Asset struct {
	Ref  string
	Type Type
	Data []byte
	Sum  string // hex SHA-256 of the source bytes
}

// DataURI encodes the asset as a data: URI.
func (a *Asset) DataURI() string {
	return "data:" + a.Type.MIME() + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// IsImage reports whether the asset can be drawn as an image.
func (a *Asset) IsImage() bool { return a.Type != PDF }

// MissingError reports an asset that could not be loaded. It is soft: the
// element using the asset is skipped and the render continues.
type MissingError struct {
	Ref string
	Err error
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("assets: %s: %v", redact(e.Ref), e.Err)
}

func (e *MissingError) Unwrap() error { return e.Err }

// ErrOutsideRoot is returned for file references that escape the root.
var ErrOutsideRoot = errors.New("path escapes asset root")

// Loader loads an asset by reference.
type Loader interface {
	Load(ctx context.Context, ref string) (*Asset, error)
}

// Config configures a Fetcher.
type Config struct {
	// Root is the directory file references are resolved in. Empty
	// disables file references.
	Root string
	// AllowHTTP enables http(s) references.
	AllowHTTP bool
	// Timeout bounds a single HTTP fetch.
	Timeout time.Duration
	// MaxBytes bounds the size of a single asset.
	MaxBytes int64
	// Shared is an optional cross-render cache of normalised bytes.
	Shared Cache
	// TTL applies to entries written to Shared.
	TTL time.Duration
}

// Fetcher is the standard Loader. It is safe for concurrent use.
type Fetcher struct {
	cfg    Config
	client *http.Client
	group  singleflight.Group
}

// New returns a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Fetcher{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Load fetches and normalises ref. All failures are *MissingError.
func (f *Fetcher) Load(ctx context.Context, ref string) (*Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &MissingError{Ref: ref, Err: errors.New("empty reference")}
	}
	raw, err := f.fetch(ctx, ref)
	if err != nil {
		return nil, &MissingError{Ref: ref, Err: err}
	}
	sum := sha256.Sum256(raw)
	key := hex.EncodeToString(sum[:])

	if f.cfg.Shared != nil {
		if cached, err := f.cfg.Shared.Get(ctx, cacheKey(key)); err == nil {
			if a, ok := decodeEntry(cached); ok {
				a.Ref, a.Sum = ref, key
				return a, nil
			}
		}
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		return normalize(raw)
	})
	if err != nil {
		return nil, &MissingError{Ref: ref, Err: err}
	}
	n := v.(*Asset)
	if f.cfg.Shared != nil {
		// A failed write only costs a later conversion.
		_ = f.cfg.Shared.Set(ctx, cacheKey(key), encodeEntry(n), f.cfg.TTL)
	}
	return &Asset{Ref: ref, Type: n.Type, Data: n.Data, Sum: key}, nil
}

func (f *Fetcher) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if !f.cfg.AllowHTTP {
			return nil, errors.New("http references are disabled")
		}
		return f.get(ctx, ref)
	}
	return f.readFile(strings.TrimPrefix(ref, "file://"))
}

func (f *Fetcher) get(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return f.readLimited(resp.Body)
}

func (f *Fetcher) readFile(name string) ([]byte, error) {
	if f.cfg.Root == "" {
		return nil, errors.New("file references are disabled")
	}
	root, err := filepath.Abs(f.cfg.Root)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(name, "/")))
	if rel, err := filepath.Rel(root, full); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, ErrOutsideRoot
	}
	fh, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return f.readLimited(fh)
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, fmt.Errorf("asset exceeds %d bytes", f.cfg.MaxBytes)
	}
	return data, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data URI: %w", err)
	}
	return []byte(s), nil
}

// Sniff returns the type of data without converting it.
func Sniff(data []byte) (Type, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return PDF, true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG, true
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return JPEG, true
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF, true
	}
	return "", false
}

func normalize(raw []byte) (*Asset, error) {
	if t, ok := Sniff(raw); ok {
		return &Asset{Type: t, Data: raw}, nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unsupported asset format: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Asset{Type: PNG, Data: buf.Bytes()}, nil
}

func cacheKey(sum string) string { return "asset:" + sum }

// Shared cache entries are the type, a newline, then the bytes.
func encodeEntry(a *Asset) []byte {
	return append([]byte(string(a.Type)+"\n"), a.Data...)
}

func decodeEntry(b []byte) (*Asset, bool) {
	t, data, ok := bytes.Cut(b, []byte("\n"))
	if !ok {
		return nil, false
	}
	switch Type(t) {
	case PNG, JPEG, GIF, PDF:
		return &Asset{Type: Type(t), Data: data}, true
	}
	return nil, false
}

// redact keeps error messages short for inline data.
func redact(ref string) string {
	if strings.HasPrefix(ref, "data:") && len(ref) > 40 {
		return ref[:40] + "..."
	}
	return ref
}
