package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"

	"github.com/gonewton/constraint/pkg/core"
	"github.com/gonewton/constraint/pkg/loader"
)

// Extension is the file extension of every stored record.
const Extension = ".jsonl"

// Repository implements core.Repository on the filesystem.
// Records live at <Path>/<category>/<id>.jsonl, one JSON object per file.
type Repository struct {
	Path string

	config   Config
	registry *loader.Registry

	mu            sync.RWMutex
	watcherActive bool
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	// Path is the constraints root directory.
	Path string
	// Registry decodes bulk reads. Defaults to loader.Default().
	Registry *loader.Registry
	// MustExist makes Initialize fail instead of creating a missing root.
	MustExist bool
	// ReadOnly rejects Write and Delete with core.ErrReadOnly.
	ReadOnly bool
	Logger   *slog.Logger
	// ErrorHandler receives errors for records skipped during bulk reads and watch failures.
	ErrorHandler func(error)
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Registry == nil {
		config.Registry = loader.Default()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{
		Path:     config.Path,
		config:   config,
		registry: config.Registry,
	}
}

var (
	_ core.Repository = (*Repository)(nil)
	_ core.Watchable  = (*Repository)(nil)
)

// Initialize ensures the constraints root exists.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if err != nil {
			return &core.IOError{Op: "stat", Path: r.Path, Err: err}
		}
		if !info.IsDir() {
			return &core.IOError{Op: "stat", Path: r.Path, Err: errors.New("not a directory")}
		}
		return nil
	}
	if r.config.ReadOnly {
		return nil
	}
	if err := os.MkdirAll(r.Path, 0o755); err != nil {
		return &core.IOError{Op: "mkdir", Path: r.Path, Err: err}
	}
	return nil
}

func (r *Repository) categoryDir(category string) string {
	return filepath.Join(r.Path, category)
}

func (r *Repository) recordPath(category, id string) string {
	return filepath.Join(r.Path, category, id+Extension)
}

// checkKey validates the path components before any path is built from them.
func checkKey(category, id string) error {
	if !core.ValidID(id) {
		return &core.InvalidIDError{ID: id}
	}
	return checkCategory(category)
}

func checkCategory(category string) error {
	if !core.ValidCategory(category) {
		return &core.ValidationError{Reason: fmt.Sprintf("invalid category %q", category)}
	}
	return nil
}

// Write persists c at the current format version, replacing any existing file.
// Timestamps are stored as whole UTC seconds, so a record read back carries the
// truncated values.
func (r *Repository) Write(ctx context.Context, c core.Constraint) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}

	rec := c.Clone()
	rec.Version = r.registry.CurrentVersion()
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Second)
	rec.UpdatedAt = rec.UpdatedAt.UTC().Truncate(time.Second)
	if err := checkStorable(rec); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return &core.ParseError{Err: err}
	}
	data = append(data, '\n')

	dir := r.categoryDir(rec.Category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	path := r.recordPath(rec.Category, rec.ID)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return &core.IOError{Op: "write", Path: path, Err: err}
	}

	r.config.Logger.DebugContext(ctx, "constraint written", "id", rec.ID, "category", rec.Category, "path", path)
	return nil
}

// checkStorable accepts only records that decode back unchanged.
func checkStorable(c core.Constraint) error {
	if err := core.Validate(c); err != nil {
		return err
	}
	if !slices.Contains(core.Types, c.Type) {
		return &core.InvalidTypeError{Label: string(c.Type)}
	}
	if !c.ValidationStatus.Valid() {
		return &core.ValidationError{Reason: fmt.Sprintf("unknown validation status %q", c.ValidationStatus)}
	}
	return nil
}

// Read decodes a single record directly, without going through the loader registry.
func (r *Repository) Read(ctx context.Context, category, id string) (core.Constraint, error) {
	if err := checkKey(category, id); err != nil {
		return core.Constraint{}, err
	}

	path := r.recordPath(category, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Constraint{}, &core.NotFoundError{ID: id}
		}
		return core.Constraint{}, &core.IOError{Op: "read", Path: path, Err: err}
	}

	var c core.Constraint
	if err := json.Unmarshal(data, &c); err != nil {
		return core.Constraint{}, &core.ParseError{Path: path, Err: err}
	}
	if !core.ValidID(c.ID) {
		return core.Constraint{}, &core.InvalidIDError{ID: c.ID}
	}
	return c, nil
}

// ReadByID scans category directories in name order and returns the first match.
func (r *Repository) ReadByID(ctx context.Context, id string) (core.Constraint, error) {
	if !core.ValidID(id) {
		return core.Constraint{}, &core.InvalidIDError{ID: id}
	}

	cats, err := r.Categories(ctx)
	if err != nil {
		return core.Constraint{}, err
	}
	for _, cat := range cats {
		c, err := r.Read(ctx, cat, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return core.Constraint{}, err
		}
	}
	return core.Constraint{}, &core.NotFoundError{ID: id}
}

// Categories lists valid category directory names in sorted order.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &core.IOError{Op: "readdir", Path: r.Path, Err: err}
	}

	var cats []string
	for _, e := range entries {
		if e.IsDir() && core.ValidCategory(e.Name()) {
			cats = append(cats, e.Name())
		}
	}
	// os.ReadDir already sorts by name.
	return cats, nil
}

// ReadCategory loads every record in a category through the registry.
// Files that fail to load are logged, reported to ErrorHandler and skipped.
// A name that cannot be a category directory has no records.
func (r *Repository) ReadCategory(ctx context.Context, category string) ([]core.Constraint, error) {
	if !core.ValidCategory(category) {
		return []core.Constraint{}, nil
	}

	dir := r.categoryDir(category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []core.Constraint{}, nil
		}
		return nil, &core.IOError{Op: "readdir", Path: dir, Err: err}
	}

	out := make([]core.Constraint, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Extension {
			continue
		}
		path := filepath.Join(dir, e.Name())
		c, err := r.loadFile(path)
		if err != nil {
			r.skip(ctx, path, err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// loadFile decodes a stored record through the version registry.
func (r *Repository) loadFile(path string) (core.Constraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Constraint{}, &core.IOError{Op: "read", Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return core.Constraint{}, &core.ParseError{Path: path, Err: errors.New("empty file")}
	}
	c, err := r.registry.Load(data)
	if err != nil {
		var pe *core.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return core.Constraint{}, err
	}
	return c, nil
}

func (r *Repository) skip(ctx context.Context, path string, err error) {
	r.config.Logger.WarnContext(ctx, "skipping unreadable constraint", "path", path, "error", err)
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(fmt.Errorf("skipped %s: %w", path, err))
	}
}

// ReadAll returns every loadable record, grouped by category in name order.
func (r *Repository) ReadAll(ctx context.Context) ([]core.Constraint, error) {
	cats, err := r.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return r.readCategories(ctx, cats)
}

// ReadMatching returns the records of every category matching a doublestar pattern.
func (r *Repository) ReadMatching(ctx context.Context, pattern string) ([]core.Constraint, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, &core.ValidationError{Reason: fmt.Sprintf("invalid category pattern %q", pattern)}
	}

	cats, err := r.Categories(ctx)
	if err != nil {
		return nil, err
	}
	matched := slices.DeleteFunc(cats, func(cat string) bool {
		ok, _ := doublestar.Match(pattern, cat)
		return !ok
	})
	return r.readCategories(ctx, matched)
}

func (r *Repository) readCategories(ctx context.Context, cats []string) ([]core.Constraint, error) {
	out := []core.Constraint{}
	for _, cat := range cats {
		cs, err := r.ReadCategory(ctx, cat)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

// Search matches query case-insensitively against text, tags, category and references.
// categoryFilter may be empty, a category name, or a glob pattern.
func (r *Repository) Search(ctx context.Context, query, categoryFilter string) ([]core.Constraint, error) {
	var (
		pool []core.Constraint
		err  error
	)
	switch {
	case categoryFilter == "":
		pool, err = r.ReadAll(ctx)
	case core.IsGlob(categoryFilter):
		pool, err = r.ReadMatching(ctx, categoryFilter)
	default:
		pool, err = r.ReadCategory(ctx, categoryFilter)
	}
	if err != nil {
		return nil, err
	}

	// A Caser is stateful, so each search gets its own.
	fold := cases.Fold()
	needle := fold.String(query)
	out := []core.Constraint{}
	for _, c := range pool {
		if matches(fold, c, needle) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matches(fold cases.Caser, c core.Constraint, needle string) bool {
	if strings.Contains(fold.String(c.Text), needle) ||
		strings.Contains(fold.String(c.Category), needle) ||
		strings.Contains(fold.String(c.References), needle) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(fold.String(tag), needle) {
			return true
		}
	}
	return false
}

// Delete removes a record file.
func (r *Repository) Delete(ctx context.Context, category, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := checkKey(category, id); err != nil {
		return err
	}

	path := r.recordPath(category, id)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &core.NotFoundError{ID: id}
		}
		return &core.IOError{Op: "remove", Path: path, Err: err}
	}

	r.config.Logger.DebugContext(ctx, "constraint deleted", "id", id, "category", category)
	return nil
}
