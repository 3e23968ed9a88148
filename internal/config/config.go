// Package config loads the server configuration from YAML, validates it
// against a JSON schema, and merges it with command-line flags.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	getter "github.com/hashicorp/go-getter"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/hexfront/internal/hex"
	"github.com/talgya/hexfront/internal/world"
)

// AdminKeyEnv overrides the admin key from the config file.
const AdminKeyEnv = "HEXFRONT_ADMIN_KEY"

// Config holds the server configuration.
type Config struct {
	Port        int    `yaml:"port"`
	DBPath      string `yaml:"db_path"`
	SnapshotDir string `yaml:"snapshot_dir"`
	AdminKey    string `yaml:"admin_key"`
	Orientation string `yaml:"orientation"` // "flat" or "pointy"
	MapLimit    int    `yaml:"map_limit"`   // bulk map requests per window per IP
	MapWindow   int    `yaml:"map_window"`  // seconds

	Map world.GenConfig `yaml:"map"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:        8080,
		DBPath:      "data/hexfront.db",
		SnapshotDir: "data/snapshots",
		Orientation: "flat",
		MapLimit:    60,
		MapWindow:   60,
		Map:         world.DefaultGenConfig(),
	}
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["port"] {
		cfg.Port = fromFile.Port
	}
	if !explicitFlags["db"] {
		cfg.DBPath = fromFile.DBPath
	}
	if !explicitFlags["seed"] {
		cfg.Map.Seed = fromFile.Map.Seed
	}
	if !explicitFlags["width"] {
		cfg.Map.Width = fromFile.Map.Width
	}
	if !explicitFlags["height"] {
		cfg.Map.Height = fromFile.Map.Height
	}
	if !explicitFlags["pointy"] {
		cfg.Orientation = fromFile.Orientation
		cfg.Map.Orientation = fromFile.Map.Orientation
	}

	// File-only settings.
	cfg.SnapshotDir = fromFile.SnapshotDir
	cfg.AdminKey = fromFile.AdminKey
	cfg.MapLimit = fromFile.MapLimit
	cfg.MapWindow = fromFile.MapWindow
	cfg.Map.TileTypes = fromFile.Map.TileTypes
	cfg.Map.MountainClusters = fromFile.Map.MountainClusters
	cfg.Map.LakeChance = fromFile.Map.LakeChance
	cfg.Map.MinAlienBaseDistance = fromFile.Map.MinAlienBaseDistance
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults. Remote sources (anything with a scheme or a
// go-getter forcing prefix) are fetched first.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Finish()
	}

	if isRemote(path) {
		dir, err := os.MkdirTemp("", "hexfront-config-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
		local := filepath.Join(dir, "hexfront.yaml")
		if err := Fetch(path, local); err != nil {
			return nil, err
		}
		path = local
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Parse(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse validates YAML against the config schema and decodes it into cfg.
func Parse(b []byte, cfg *Config) error {
	if err := validateSchema(b); err != nil {
		return fmt.Errorf("hexfront.yaml: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("hexfront.yaml: %w", err)
	}
	if err := cfg.Finish(); err != nil {
		return fmt.Errorf("hexfront.yaml: %w", err)
	}
	return nil
}

// Finish resolves derived fields and validates the map parameters.
func (c *Config) Finish() error {
	o, err := hex.ParseOrientation(c.Orientation)
	if err != nil {
		return err
	}
	c.Map.Orientation = o
	if key := os.Getenv(AdminKeyEnv); key != "" {
		c.AdminKey = key
	}
	return c.Map.Validate()
}

// Fetch downloads a config file from src (local path, http(s), s3, gcs,
// git::...) to dst.
func Fetch(src, dst string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return err
	}
	client := &getter.Client{
		Ctx:  context.Background(),
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch config %s: %w", src, err)
	}
	return nil
}

func isRemote(path string) bool {
	return strings.Contains(path, "://") || strings.Contains(path, "::")
}

func validateSchema(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// The validator expects encoding/json values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return schema.Validate(v)
}

var schema = jsonschema.MustCompileString("hexfront.schema.json", schemaJSON)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "port": {"type": "integer", "minimum": 1, "maximum": 65535},
    "db_path": {"type": "string", "minLength": 1},
    "snapshot_dir": {"type": "string"},
    "admin_key": {"type": "string"},
    "orientation": {"enum": ["flat", "flat-topped", "pointy", "pointy-topped"]},
    "map_limit": {"type": "integer", "minimum": 1},
    "map_window": {"type": "integer", "minimum": 1},
    "map": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "width": {"type": "integer", "minimum": 1},
        "height": {"type": "integer", "minimum": 1},
        "seed": {"type": "integer"},
        "mountain_clusters": {"type": "integer", "minimum": 1},
        "lake_chance": {"type": "number", "minimum": 0, "maximum": 1},
        "min_alien_base_distance": {"type": "integer", "minimum": 0},
        "tile_types": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["name", "spawn_weight"],
            "additionalProperties": false,
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "min_height": {"type": "number"},
              "max_height": {"type": "number"},
              "material": {"type": "string"},
              "spawn_weight": {"type": "number", "minimum": 0}
            }
          }
        }
      }
    }
  }
}`
