package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/cache"
	"github.com/bobmcallan/markmentum-portal/internal/common"
)

// ErrMalformed is returned in strict mode for files that cannot be parsed.
var ErrMalformed = errors.New("malformed file")

// Observer receives one call per file actually read from disk.
type Observer interface {
	ObserveLoad(file string, rows int, elapsed time.Duration, err error)
}

// Store loads artifacts from the data directory and caches them until
// explicitly invalidated.
type Store struct {
	dir      string
	schema   *Schema
	strict   bool
	logger   *common.Logger
	observer Observer
	tables   *cache.Cache[*Table]
	texts    *cache.Cache[string]
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	logger     *common.Logger
	strict     bool
	maxEntries int
	observer   Observer
	schema     *Schema
}

// WithLogger sets the store logger.
func WithLogger(l *common.Logger) Option {
	return func(o *storeOptions) { o.logger = l }
}

// WithStrict makes schema violations and malformed files errors instead of
// empty tables.
func WithStrict(strict bool) Option {
	return func(o *storeOptions) { o.strict = strict }
}

// WithMaxEntries bounds the number of cached tables.
func WithMaxEntries(n int) Option {
	return func(o *storeOptions) { o.maxEntries = n }
}

// WithObserver registers a load observer.
func WithObserver(obs Observer) Option {
	return func(o *storeOptions) { o.observer = obs }
}

// WithSchema replaces the embedded schema.
func WithSchema(s *Schema) Option {
	return func(o *storeOptions) { o.schema = s }
}

// NewStore creates a store over dir.
func NewStore(dir string, opts ...Option) (*Store, error) {
	o := storeOptions{maxEntries: 256}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = common.NewSilentLogger()
	}
	if o.schema == nil {
		s, err := DefaultSchema()
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset schema: %w", err)
		}
		o.schema = s
	}
	return &Store{
		dir:      dir,
		schema:   o.schema,
		strict:   o.strict,
		logger:   o.logger,
		observer: o.observer,
		tables:   cache.New[*Table](0, o.maxEntries),
		texts:    cache.New[string](0, o.maxEntries),
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Schema returns the dataset schema in use.
func (s *Store) Schema() *Schema { return s.schema }

// Path resolves name inside the data directory. Directory components in
// name are discarded.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(filepath.Clean("/"+name)))
}

// Exists reports whether name is present in the data directory.
func (s *Store) Exists(name string) bool {
	fi, err := os.Stat(s.Path(name))
	return err == nil && !fi.IsDir()
}

// Graph loads qry_graph_data_NN.csv.
func (s *Store) Graph(ctx context.Context, id int) (*Table, error) {
	return s.Named(ctx, GraphFile(id))
}

// Named loads a CSV by file name. A missing file yields an empty table and
// a nil error. The returned table is never nil.
func (s *Store) Named(ctx context.Context, name string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return Empty(name), err
	}
	t, err := s.tables.GetOrLoad(cache.MakeKey("csv", name), func() (*Table, error) {
		return s.load(name)
	})
	if err != nil {
		return Empty(name), err
	}
	return t, nil
}

func (s *Store) load(name string) (*Table, error) {
	start := time.Now()
	t, err := s.readCSV(name)
	if s.observer != nil {
		s.observer.ObserveLoad(name, t.Len(), time.Since(start), err)
	}
	if err == nil {
		return t, nil
	}

	if errors.Is(err, ErrSchema) || errors.Is(err, ErrMalformed) {
		if s.strict {
			s.logger.Error().Str("file", name).Err(err).Msg("Dataset rejected")
			return nil, err
		}
		s.logger.Warn().Str("file", name).Err(err).Msg("Dataset rejected, serving empty table")
		return Empty(name), nil
	}
	s.logger.Error().Str("file", name).Err(err).Msg("Failed to read dataset")
	return nil, err
}

func (s *Store) readCSV(name string) (*Table, error) {
	f, err := os.Open(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug().Str("file", name).Msg("Dataset not found")
		return Empty(name), nil
	}
	if err != nil {
		return Empty(name), fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	header, rows, err := parseCSV(f)
	if err != nil {
		return Empty(name), fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if header == nil {
		return Empty(name), nil
	}

	ds := s.schema.For(name)
	header = ds.Resolve(header)
	if err := ds.Check(header); err != nil {
		return Empty(name), fmt.Errorf("%s: %w", name, err)
	}
	return NewTable(name, header, rows), nil
}

func parseCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// Text loads a commentary file by extension (.docx, .html, .txt). Missing
// or unreadable files yield "".
func (s *Store) Text(ctx context.Context, name string) string {
	if ctx.Err() != nil {
		return ""
	}
	text, _ := s.texts.GetOrLoad(cache.MakeKey("text", name), func() (string, error) {
		path := s.Path(name)
		var (
			text string
			err  error
		)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".docx":
			text, err = ReadDocx(path)
		case ".html", ".htm":
			text, err = ReadMarketReadHTML(path)
		default:
			text, err = ReadText(path)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Str("file", name).Err(err).Msg("Failed to read commentary")
		}
		return text, nil
	})
	return text
}

// HTML returns the raw contents of an HTML artifact and whether it exists.
func (s *Store) HTML(ctx context.Context, name string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	key := cache.MakeKey("html", name)
	if v, ok := s.texts.Get(key); ok {
		return v, true
	}
	b, err := os.ReadFile(s.Path(name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Str("file", name).Err(err).Msg("Failed to read html artifact")
		}
		return "", false
	}
	v := string(b)
	s.texts.Set(key, v)
	return v, true
}

// Invalidate drops every cached artifact and returns how many were dropped.
func (s *Store) Invalidate() int {
	return s.tables.Clear() + s.texts.Clear()
}

// InvalidateName drops the cached forms of one file.
func (s *Store) InvalidateName(name string) {
	name = filepath.Base(name)
	s.tables.Invalidate(cache.MakeKey("csv", name))
	s.texts.Invalidate(cache.MakeKey("text", name))
	s.texts.Invalidate(cache.MakeKey("html", name))
}

// Stats returns combined cache statistics.
func (s *Store) Stats() cache.Stats {
	a, b := s.tables.Stats(), s.texts.Stats()
	return cache.Stats{
		Hits:    a.Hits + b.Hits,
		Misses:  a.Misses + b.Misses,
		Entries: a.Entries + b.Entries,
	}
}
