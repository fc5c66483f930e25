package vecbench

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/vecbench/codec"
	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/compress"
	"gopkg.in/yaml.v3"
)

// Mode selects how the orchestrator obtains the index.
type Mode uint8

const (
	// ModeReuse loads a previously saved index from IndexPath.
	ModeReuse Mode = iota
	// ModeRebuild builds the index from the base vectors and saves it to
	// IndexPath, replacing any earlier snapshot.
	ModeRebuild
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeReuse:
		return "reuse"
	case ModeRebuild:
		return "rebuild"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode maps "reuse" or "rebuild" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reuse", "load":
		return ModeReuse, nil
	case "rebuild", "build":
		return ModeRebuild, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Mode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// Config is the complete, immutable description of one benchmark run.
type Config struct {
	// Dataset, Queries and GroundTruth name blobs in the configured storage.
	Dataset     string `yaml:"dataset"`
	Queries     string `yaml:"queries"`
	GroundTruth string `yaml:"ground_truth"`

	// IndexPath is where the index snapshot is saved or loaded.
	IndexPath string `yaml:"index_path"`
	Mode      Mode   `yaml:"mode"`

	// EfSweep is searched in order; every value yields one round.
	EfSweep []int `yaml:"ef_sweep"`
	K       int   `yaml:"k"`

	// TruthDepth truncates ground-truth rows to their first TruthDepth ids.
	// Zero uses the whole row.
	TruthDepth int `yaml:"truth_depth"`

	// Workers is the query pool size. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// MaxQPS throttles query dispatch. Zero means unlimited.
	MaxQPS float64 `yaml:"max_qps"`

	Index   IndexConfig   `yaml:"index"`
	Storage StorageConfig `yaml:"storage"`
	Report  ReportConfig  `yaml:"report"`
}

// IndexConfig holds the construction parameters of the index.
type IndexConfig struct {
	Kind           string `yaml:"kind"`
	Metric         string `yaml:"metric"`
	M              int    `yaml:"m"`
	EFConstruction int    `yaml:"ef_construction"`
	Seed           uint64 `yaml:"seed"`
	Compression    string `yaml:"compression"`
}

// StorageConfig selects the blob store all paths are resolved against.
type StorageConfig struct {
	// Kind is one of local, memory, s3 or minio.
	Kind string `yaml:"kind"`

	// Root is the directory of a local store.
	Root string `yaml:"root"`

	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// ReportConfig controls where the finished report goes.
type ReportConfig struct {
	// Path stores the encoded report as a blob. Empty disables it.
	Path string `yaml:"path"`
	// Codec encodes the blob report: go-json (default) or json.
	Codec string `yaml:"codec"`
	// Format is what is printed to stdout: text, json or none.
	Format string `yaml:"format"`
	// DynamoDBTable receives one item per round when set.
	DynamoDBTable string `yaml:"dynamodb_table"`
	// RunID identifies the run in sinks. Empty generates one.
	RunID string `yaml:"run_id"`
}

// Storage kinds.
const (
	StorageLocal  = "local"
	StorageMemory = "memory"
	StorageS3     = "s3"
	StorageMinio  = "minio"
)

// DefaultEfSweep is the ef sweep used when none is configured.
var DefaultEfSweep = []int{10, 20, 30, 40, 50, 75, 100}

// DefaultConfig returns a configuration with every optional field set. The
// input paths are left empty.
func DefaultConfig() Config {
	return Config{
		IndexPath: "hnsw_index",
		Mode:      ModeReuse,
		EfSweep:   append([]int(nil), DefaultEfSweep...),
		K:         10,
		Workers:   8,
		Index: IndexConfig{
			Kind:           "hnsw",
			Metric:         distance.MetricL2.String(),
			M:              16,
			EFConstruction: 200,
			Seed:           42,
			Compression:    compress.None.String(),
		},
		Storage: StorageConfig{
			Kind: StorageLocal,
			Root: ".",
		},
		Report: ReportConfig{
			Format: "text",
		},
	}
}

// LoadConfig decodes YAML on top of DefaultConfig and validates the result.
// Unknown fields are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads the YAML configuration at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	return LoadConfig(f)
}

// Validate checks the configuration before any input is read.
func (c Config) Validate() error {
	if c.K <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidK, c.K)
	}
	if len(c.EfSweep) == 0 {
		return ErrEmptySweep
	}
	for _, ef := range c.EfSweep {
		if ef <= 0 {
			return invalidConfig("ef_sweep", ef, errors.New("ef must be positive"))
		}
	}

	for _, f := range []struct{ name, value string }{
		{"dataset", c.Dataset},
		{"queries", c.Queries},
		{"ground_truth", c.GroundTruth},
		{"index_path", c.IndexPath},
		{"index.kind", c.Index.Kind},
	} {
		if f.value == "" {
			return invalidConfig(f.name, f.value, errors.New("required"))
		}
	}

	if c.Mode != ModeReuse && c.Mode != ModeRebuild {
		return invalidConfig("mode", c.Mode, nil)
	}
	if c.TruthDepth < 0 {
		return invalidConfig("truth_depth", c.TruthDepth, nil)
	}
	if c.Workers < 0 {
		return invalidConfig("workers", c.Workers, nil)
	}
	if c.MaxQPS < 0 {
		return invalidConfig("max_qps", c.MaxQPS, nil)
	}

	if _, err := distance.ParseMetric(c.Index.Metric); err != nil {
		return invalidConfig("index.metric", c.Index.Metric, err)
	}
	if _, err := compress.Parse(c.Index.Compression); err != nil {
		return invalidConfig("index.compression", c.Index.Compression, err)
	}
	if _, err := codec.ByName(c.Report.Codec); err != nil {
		return invalidConfig("report.codec", c.Report.Codec, err)
	}

	switch c.Report.Format {
	case "", "text", "json", "none":
	default:
		return invalidConfig("report.format", c.Report.Format, nil)
	}

	switch c.Storage.Kind {
	case "", StorageLocal, StorageMemory:
	case StorageS3, StorageMinio:
		if c.Storage.Bucket == "" {
			return invalidConfig("storage.bucket", "", errors.New("required"))
		}
		if c.Storage.Kind == StorageMinio && c.Storage.Endpoint == "" {
			return invalidConfig("storage.endpoint", "", errors.New("required"))
		}
	default:
		return invalidConfig("storage.kind", c.Storage.Kind, nil)
	}

	return nil
}

// indexOptions converts the validated index section.
func (c Config) indexOptions(dim int) (index.Options, error) {
	metric, err := distance.ParseMetric(c.Index.Metric)
	if err != nil {
		return index.Options{}, err
	}
	comp, err := compress.Parse(c.Index.Compression)
	if err != nil {
		return index.Options{}, err
	}
	return index.Options{
		Dimension:      dim,
		Metric:         metric,
		M:              c.Index.M,
		EFConstruction: c.Index.EFConstruction,
		Seed:           c.Index.Seed,
		Compression:    comp,
	}, nil
}
