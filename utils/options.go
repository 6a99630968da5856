package utils

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// HeaderSize is timestamp + count + min key + max key.
	HeaderSize = 32
	// FilterSize is the byte size of the bloom filter bitmap.
	FilterSize = 10240
	// IndexEntrySize is an 8 byte key and a 4 byte offset.
	IndexEntrySize = 12
	// TableOverhead is the fixed prefix of every table: header and bloom filter.
	TableOverhead = HeaderSize + FilterSize

	// DefaultMaxTableSize caps memtables and table files at 2 MiB.
	DefaultMaxTableSize int64 = 2 << 20
	// DefaultValueCacheSize is the number of decoded values kept in memory.
	DefaultValueCacheSize = 4096

	CachePolicyWTinyLFU = "wtinylfu"
	CachePolicyLRU      = "lru"
)

var validate = validator.New()

// Options to control the behavior of a store
type Options struct {
	WorkDir        string `yaml:"work_dir" validate:"required"`
	MaxTableSize   int64  `yaml:"max_table_size" validate:"gte=20480,lte=4294967295"`
	ValueCacheSize int    `yaml:"value_cache_size" validate:"gte=0"`
	CachePolicy    string `yaml:"cache_policy" validate:"omitempty,oneof=wtinylfu lru"`

	Logger     *zap.Logger           `yaml:"-"`
	Registerer prometheus.Registerer `yaml:"-"`
}

// DefaultOptions returns options for a store rooted at dir.
func DefaultOptions(dir string) *Options {
	return &Options{
		WorkDir:        dir,
		MaxTableSize:   DefaultMaxTableSize,
		ValueCacheSize: DefaultValueCacheSize,
		CachePolicy:    CachePolicyWTinyLFU,
	}
}

// Validate checks the option values and fills in the defaults for unset collaborators.
func (opt *Options) Validate() error {
	if err := validate.Struct(opt); err != nil {
		return errors.Wrap(err, "invalid options")
	}
	if opt.CachePolicy == "" {
		opt.CachePolicy = CachePolicyWTinyLFU
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.Registerer == nil {
		opt.Registerer = prometheus.NewRegistry()
	}
	return nil
}

// LoadOptions reads a YAML config file. Fields missing from the file keep their defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	opt := DefaultOptions("")
	if err := yaml.Unmarshal(data, opt); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return opt, nil
}
