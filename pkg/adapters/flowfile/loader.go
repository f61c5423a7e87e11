package flowfile

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Extensions lists the file extensions picked up by the loader.
var Extensions = []string{".yaml", ".yml", ".json"}

// Reserved lists file names that share a directory with flows but hold
// something else (process action declarations).
var Reserved = []string{"actions.yaml", "actions.yml"}

// Loader implements ports.FlowLoader over a directory tree of flow files,
// one flow per file.
type Loader struct {
	fsys   fs.FS
	logger *slog.Logger
	ignore map[string]bool
}

type Option func(*Loader)

// WithLogger sets the logger used to report skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithIgnore skips files with the given base names, in addition to Reserved.
func WithIgnore(names ...string) Option {
	return func(l *Loader) {
		for _, n := range names {
			l.ignore[n] = true
		}
	}
}

// New creates a loader over the directory dir.
func New(dir string, opts ...Option) *Loader {
	return NewFS(os.DirFS(dir), opts...)
}

// NewFS creates a loader over fsys, e.g. an embed.FS.
func NewFS(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{fsys: fsys, logger: slog.New(slog.DiscardHandler), ignore: make(map[string]bool)}
	for _, n := range Reserved {
		l.ignore[n] = true
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir is a convenience for New(dir).Load.
func LoadDir(dir string) ([]*domain.FlowDefinition, error) {
	return New(dir).Load(context.Background())
}

// Load parses every flow file, walking subdirectories. Files are visited in
// lexical order; two files defining the same flow id is an error.
func (l *Loader) Load(ctx context.Context) ([]*domain.FlowDefinition, error) {
	var files []string
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if isFlowFile(p) && !l.ignore[d.Name()] {
			files = append(files, p)
		} else {
			l.logger.Debug("Skipping non-flow file", "path", p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk flow directory: %w", err)
	}
	sort.Strings(files)

	seen := make(map[string]string, len(files))
	flows := make([]*domain.FlowDefinition, 0, len(files))
	for _, p := range files {
		data, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		flow, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if existing, ok := seen[flow.ID]; ok {
			return nil, fmt.Errorf("%w: flow id '%s' is defined in both '%s' and '%s'", domain.ErrInvalidDefinition, flow.ID, existing, p)
		}
		seen[flow.ID] = p
		flows = append(flows, flow)
		l.logger.Debug("Loaded flow", "flow", flow.ID, "path", p, "states", len(flow.States))
	}
	return flows, nil
}

func isFlowFile(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
