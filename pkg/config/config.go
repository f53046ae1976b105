// Package config loads engine configuration from YAML, with defaults
// matching the parameters spec'd for HNSW, the LSM-tree, and score fusion.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HNSW holds the parameters fixed at partition open time.
type HNSW struct {
	M              int     `yaml:"m"`
	EfConstruction int     `yaml:"ef_construction"`
	EfSearch       int     `yaml:"ef_search"`
	Distance       string  `yaml:"distance"` // "cosine", "l2", "dot", "l1"
	Dimension      int     `yaml:"dimension"`
}

// LSM holds MemTable/compaction thresholds.
type LSM struct {
	MemTableThreshold int     `yaml:"mem_table_threshold"`
	BloomFPR          float64 `yaml:"bloom_fpr"`
	LevelFanout       int     `yaml:"level_fanout"`
}

// Fusion holds default score-fusion weights and the planner's routing
// thresholds.
type Fusion struct {
	Strategy             string  `yaml:"strategy"` // "explicit" or "adaptive"
	VectorWeight         float64 `yaml:"vector_weight"`
	MetadataWeight       float64 `yaml:"metadata_weight"`
	GraphWeight          float64 `yaml:"graph_weight"`
	SingleTypeThreshold  float64 `yaml:"single_type_threshold"`
	MultiTypeThreshold   float64 `yaml:"multi_type_threshold"`
	MaxMultiTypes        int     `yaml:"max_multi_types"`
}

// Blobstore holds the blob store's hash algorithm and LRU cache size.
type Blobstore struct {
	HashAlgorithm string `yaml:"hash_algorithm"` // "blake3" or "sha256"
	CacheEntries  int    `yaml:"cache_entries"`
}

// Migration bounds a single migration run.
type Migration struct {
	BatchSize int `yaml:"batch_size"`
	MaxErrors int `yaml:"max_errors"`
}

// Engine is the root of the engine's configuration tree.
type Engine struct {
	DataDir         string        `yaml:"data_dir"`
	HNSW            HNSW          `yaml:"hnsw"`
	LSM             LSM           `yaml:"lsm"`
	Fusion          Fusion        `yaml:"fusion"`
	Blobstore       Blobstore     `yaml:"blobstore"`
	Migration       Migration     `yaml:"migration"`
	FlushInterval   time.Duration `yaml:"flush_interval"`
	LogLevel        string        `yaml:"log_level"`
	LogJSON         bool          `yaml:"log_json"`
}

// Default returns the engine's default configuration, matching spec
// defaults: M=16/efConstruction=200/efSearch=100 for the general HNSW
// partitions, singleTypeThreshold=0.8, multiTypeThreshold=0.6,
// maxMultiTypes=5, bloom FPR <= 1%.
func Default() Engine {
	return Engine{
		DataDir: "./data",
		HNSW: HNSW{
			M:              16,
			EfConstruction: 200,
			EfSearch:       100,
			Distance:       "cosine",
			Dimension:      384,
		},
		LSM: LSM{
			MemTableThreshold: 10000,
			BloomFPR:          0.01,
			LevelFanout:       4,
		},
		Fusion: Fusion{
			Strategy:            "adaptive",
			VectorWeight:        0.6,
			MetadataWeight:      0.25,
			GraphWeight:         0.15,
			SingleTypeThreshold: 0.8,
			MultiTypeThreshold:  0.6,
			MaxMultiTypes:       5,
		},
		Blobstore: Blobstore{
			HashAlgorithm: "blake3",
			CacheEntries:  2048,
		},
		Migration: Migration{
			BatchSize: 500,
			MaxErrors: 100,
		},
		FlushInterval: 15 * time.Second,
		LogLevel:      "info",
		LogJSON:       true,
	}
}

// LoadFile reads and unmarshals a YAML config file, applying it on top of
// Default() so a partial file only overrides what it declares.
func LoadFile(path string) (Engine, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
