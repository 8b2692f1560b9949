// Package config loads the viewer configuration from YAML.
package config

import (
	"os"
	"strings"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"point-viewer/renderer"
)

const (
	MinCacheSizeMB = 1000
	MaxCacheSizeMB = 16000
	// NodesPerMB converts the cache budget into a resident node count.
	NodesPerMB = 5
)

type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Config struct {
	// CacheSize is a human-readable memory budget such as "2000MB" or "4GiB".
	CacheSize        string       `yaml:"cache_size"`
	PointSize        float32      `yaml:"point_size"`
	Gamma            float32      `yaml:"gamma"`
	MaxLevelMoving   int          `yaml:"max_level_moving"`
	LoadsPerFrame    int          `yaml:"loads_per_frame"`
	UseLevelOfDetail bool         `yaml:"use_level_of_detail"`
	ShowOctreeNodes  bool         `yaml:"show_octree_nodes"`
	UseVertexNormals bool         `yaml:"use_vertex_normals"`
	HeightMapPath    string       `yaml:"height_map"`
	ViewpointPath    string       `yaml:"viewpoint_path"`
	LogLevel         string       `yaml:"log_level"`
	MetricsAddr      string       `yaml:"metrics_addr"`
	Window           WindowConfig `yaml:"window"`
}

func DefaultConfig() Config {
	return Config{
		CacheSize:      "2000MB",
		PointSize:      renderer.DefaultPointSize,
		Gamma:          renderer.DefaultGamma,
		MaxLevelMoving: renderer.DefaultMaxLevelMoving,
		LoadsPerFrame:  renderer.DefaultLoadsPerFrame,
		ViewpointPath:  "viewpoint.json",
		LogLevel:       "info",
		Window: WindowConfig{
			Width:  800,
			Height: 600,
		},
	}
}

// Load reads the YAML file at path on top of DefaultConfig. Unknown keys are
// an error. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to open config")
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := units.RAMInBytes(c.CacheSize); err != nil {
		return errors.Wrapf(err, "invalid cache_size %q", c.CacheSize)
	}
	switch {
	case c.PointSize <= 0:
		return errors.Errorf("point_size must be positive, got %v", c.PointSize)
	case c.Gamma <= 0:
		return errors.Errorf("gamma must be positive, got %v", c.Gamma)
	case c.MaxLevelMoving < 1:
		return errors.Errorf("max_level_moving must be at least 1, got %d", c.MaxLevelMoving)
	case c.LoadsPerFrame < 1:
		return errors.Errorf("loads_per_frame must be at least 1, got %d", c.LoadsPerFrame)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// CacheSizeMB returns the cache budget in MiB, clamped to
// [MinCacheSizeMB, MaxCacheSizeMB].
func (c Config) CacheSizeMB() (int, error) {
	size, err := units.RAMInBytes(c.CacheSize)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid cache_size %q", c.CacheSize)
	}
	mb := int(size / units.MiB)
	return min(max(mb, MinCacheSizeMB), MaxCacheSizeMB), nil
}

func (c Config) MaxNodesInMemory() (int, error) {
	mb, err := c.CacheSizeMB()
	if err != nil {
		return 0, err
	}
	return mb * NodesPerMB, nil
}

// ViewerOptions converts the configuration into renderer options.
func (c Config) ViewerOptions() (renderer.Options, error) {
	maxNodes, err := c.MaxNodesInMemory()
	if err != nil {
		return renderer.Options{}, err
	}
	opts := renderer.DefaultOptions()
	opts.MaxNodesInMemory = maxNodes
	opts.LoadsPerFrame = c.LoadsPerFrame
	opts.PointSize = c.PointSize
	opts.Gamma = c.Gamma
	opts.MaxLevelMoving = c.MaxLevelMoving
	opts.UseLevelOfDetail = c.UseLevelOfDetail
	opts.ShowOctreeNodes = c.ShowOctreeNodes
	opts.UseVertexNormals = c.UseVertexNormals
	opts.ViewpointPath = c.ViewpointPath
	return opts, nil
}
