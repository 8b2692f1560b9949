package octree

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Factory creates an octree from the part of the argument after its prefix.
type Factory func(arg string) (Octree, error)

// Registry picks an octree implementation by argument prefix and falls back
// to the on-disk layout.
type Registry struct {
	factories map[string]Factory
	logger    *zap.SugaredLogger
}

func NewRegistry(logger *zap.SugaredLogger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

// Register makes Open call f for arguments starting with prefix.
func (r *Registry) Register(prefix string, f Factory) *Registry {
	r.factories[prefix] = f
	return r
}

// Open tries every matching factory, longest prefix first. A failing factory
// is logged and the next one is tried; when none succeeds the argument is
// opened as an on-disk octree directory.
func (r *Registry) Open(arg string) (Octree, error) {
	prefixes := lo.Filter(lo.Keys(r.factories), func(p string, _ int) bool {
		return strings.HasPrefix(arg, p)
	})
	slices.SortFunc(prefixes, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	for _, prefix := range prefixes {
		t, err := r.factories[prefix](strings.TrimPrefix(arg, prefix))
		if err != nil {
			r.logger.Warnw("octree factory failed", "prefix", prefix, "arg", arg, "error", err)
			continue
		}
		r.logger.Infow("opened octree", "prefix", prefix, "arg", arg)
		return t, nil
	}
	t, err := OpenDisk(arg)
	if err != nil {
		return nil, err
	}
	r.logger.Infow("opened on-disk octree", "dir", arg, "nodes", len(t.nodes))
	return t, nil
}

// GenerateFromArg parses "<kind>[:<count>]" and generates that point set.
// The count defaults to one million.
func GenerateFromArg(arg string, seed uint64) ([]Point, error) {
	kind, countStr, hasCount := strings.Cut(arg, ":")
	count := 1_000_000
	if hasCount {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid point count %q", countStr)
		}
		count = n
	}
	return Generate(kind, count, seed)
}

// GeneratedFactory returns a factory for "<kind>[:<count>]" arguments that
// builds an in-memory octree from a synthetic point set.
func GeneratedFactory(opts BuildOptions) Factory {
	return func(arg string) (Octree, error) {
		points, err := GenerateFromArg(arg, opts.Seed)
		if err != nil {
			return nil, err
		}
		t, err := Build(points, opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// PointsFactory adapts a point file reader into a factory that builds an
// in-memory octree.
func PointsFactory(read func(path string) ([]Point, error), opts BuildOptions) Factory {
	return func(path string) (Octree, error) {
		points, err := read(path)
		if err != nil {
			return nil, err
		}
		t, err := Build(points, opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
