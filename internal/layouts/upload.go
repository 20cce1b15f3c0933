package layouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ayush/layout-library/backend/internal/apperr"
)

const (
	FieldThumbnail = "thumbnail"
	FieldFile      = "file"

	MaxThumbnails = 1
	MaxFiles      = 10

	// DefaultMaxFileSize is the per-file ceiling.
	DefaultMaxFileSize int64 = 50 << 20

	// parts above this size spill to temporary files
	formMemory = 32 << 20
)

var (
	unsafeChars  = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	stampPrefix  = regexp.MustCompile(`^\d+-`)
	errTooLarge  = apperr.TooLarge("File too large")
	errBadFields = apperr.Validation("Unexpected field")
)

// FileStore defines the interface for uploaded file storage.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, name string) error
}

// SanitizeName replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// OriginalName strips the "<millis>-" prefix from a stored name.
func OriginalName(stored string) string {
	return stampPrefix.ReplaceAllString(stored, "")
}

// Receiver parses multipart uploads and persists their files.
type Receiver struct {
	files       FileStore
	maxFileSize int64
	now         func() time.Time
	last        atomic.Int64
}

func NewReceiver(files FileStore, maxFileSize int64) *Receiver {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Receiver{files: files, maxFileSize: maxFileSize, now: time.Now}
}

// Upload is a parsed request whose files are not yet persisted.
type Upload struct {
	Form      url.Values
	Thumbnail *multipart.FileHeader
	Files     []*multipart.FileHeader

	form *multipart.Form
}

// Close removes temporary files created while parsing.
func (u *Upload) Close() error {
	if u.form == nil {
		return nil
	}
	return u.form.RemoveAll()
}

// Stored holds the names assigned to persisted files.
type Stored struct {
	Thumbnail string
	Files     []string
}

func (s *Stored) names() []string {
	var names []string
	if s.Thumbnail != "" {
		names = append(names, s.Thumbnail)
	}
	return append(names, s.Files...)
}

// Parse reads the request body. Multipart bodies are checked against the
// field and size limits before anything is persisted; url-encoded and JSON
// bodies yield form values only.
func (rc *Receiver) Parse(w http.ResponseWriter, r *http.Request) (*Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	limit := rc.maxFileSize*(MaxFiles+MaxThumbnails) + formMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	switch mediaType {
	case "multipart/form-data":
		return rc.parseMultipart(r)
	case "application/json":
		values, err := valuesFromJSON(r.Body)
		if err != nil {
			return nil, apperr.Validation("Invalid request body")
		}
		return &Upload{Form: values}, nil
	default:
		if err := r.ParseForm(); err != nil {
			return nil, apperr.Validation("Invalid request body")
		}
		return &Upload{Form: r.PostForm}, nil
	}
}

func (rc *Receiver) parseMultipart(r *http.Request) (*Upload, error) {
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errTooLarge
		}
		return nil, apperr.Validation("Invalid multipart form")
	}
	form := r.MultipartForm
	up := &Upload{Form: url.Values(form.Value), form: form}

	for field, headers := range form.File {
		switch {
		case field == FieldThumbnail && len(headers) <= MaxThumbnails:
			up.Thumbnail = headers[0]
		case field == FieldFile && len(headers) <= MaxFiles:
			up.Files = headers
		default:
			up.Close()
			return nil, errBadFields
		}
		for _, fh := range headers {
			if fh.Size > rc.maxFileSize {
				up.Close()
				return nil, errTooLarge
			}
		}
	}
	return up, nil
}

// StoredName derives a unique stored name from the client's file name.
func (rc *Receiver) StoredName(original string) string {
	return fmt.Sprintf("%d-%s", rc.stamp(), SanitizeName(original))
}

// stamp returns the current unix milliseconds, bumped so that no two calls
// in this process return the same value.
func (rc *Receiver) stamp() int64 {
	for {
		last := rc.last.Load()
		next := rc.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if rc.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Persist writes the upload's files to storage. If any write fails, the
// files already written by this call are removed.
func (rc *Receiver) Persist(ctx context.Context, up *Upload) (*Stored, error) {
	stored := &Stored{}
	if up.Thumbnail != nil {
		name, err := rc.save(ctx, up.Thumbnail)
		if err != nil {
			return nil, err
		}
		stored.Thumbnail = name
	}
	for _, fh := range up.Files {
		name, err := rc.save(ctx, fh)
		if err != nil {
			rc.Discard(ctx, stored.names()...)
			return nil, err
		}
		stored.Files = append(stored.Files, name)
	}
	return stored, nil
}

func (rc *Receiver) save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	name := rc.StoredName(fh.Filename)
	if err := rc.files.Save(ctx, name, f, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		return "", err
	}
	return name, nil
}

// Discard removes stored files, logging failures.
func (rc *Receiver) Discard(ctx context.Context, names ...string) {
	for _, name := range names {
		if err := rc.files.Remove(ctx, name); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			slog.ErrorContext(ctx, "discard upload failed", "file", name, "error", err)
		}
	}
}

// valuesFromJSON flattens a JSON object of strings and string arrays.
func valuesFromJSON(r io.Reader) (url.Values, error) {
	var raw map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	values := url.Values{}
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			values.Add(k, t)
		case json.Number:
			values.Add(k, t.String())
		case []any:
			for _, item := range t {
				switch it := item.(type) {
				case string:
					values.Add(k, it)
				case json.Number:
					values.Add(k, it.String())
				}
			}
		case nil:
		default:
			values.Add(k, strings.TrimSpace(fmt.Sprint(t)))
		}
	}
	return values, nil
}
