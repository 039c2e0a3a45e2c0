package engine

import (
	"fmt"
	"path/filepath"

	"oss.nandlabs.io/jobengine/backend"
	"oss.nandlabs.io/jobengine/codec"
	"oss.nandlabs.io/jobengine/config"
	"oss.nandlabs.io/jobengine/ioutils"
)

// CacheType selects where a Jobs manager persists job snapshots (spec §6).
type CacheType string

const (
	// CacheMemory keeps jobs in memory only; nothing survives a restart.
	CacheMemory CacheType = "memory"
	// CacheDisk mirrors every status change to the on-disk store described
	// in spec §6 ("Persistence format").
	CacheDisk CacheType = "disk"
)

// DefaultInjectionKey is the keyword argument name a callable declares when
// it wants the engine injected (spec §4.2), unless EngineSetting overrides
// it.
const DefaultInjectionKey = "__engine__"

// DefaultMaxJobs is the engine-wide job cap applied when EngineSetting
// leaves MaxJobs at its zero value (spec §6: "max_jobs?: int=20").
const DefaultMaxJobs = 20

// EngineSetting configures a new Engine (spec §6 EngineSetting). Unset
// caps (zero value) mean +∞, except MaxJobs, whose documented default is
// 20 rather than unlimited.
type EngineSetting struct {
	// MaxThreadJobs caps concurrent Thread-backend jobs. Zero means
	// unlimited.
	MaxThreadJobs int
	// MaxProcessJobs caps concurrent Process-backend jobs. Zero means
	// unlimited.
	MaxProcessJobs int
	// MaxDistributedJobs caps concurrent Distributed-backend jobs. Zero
	// means unlimited.
	MaxDistributedJobs int
	// MaxJobs caps the engine-global number of jobs admitted to Running at
	// once, across every backend. Zero is replaced by DefaultMaxJobs at
	// construction, not treated as unlimited (spec's documented default).
	MaxJobs int
	// ResourceCaps bounds any additional named resource a job declares via
	// its Resources map (spec §3's "for each resource R" generalizes past
	// the four built-in counters). A name absent here is unlimited.
	ResourceCaps map[string]int
	// CacheType selects memory-only or disk-backed job persistence.
	CacheType CacheType
	// CachePath roots the disk cache when CacheType is CacheDisk. Empty
	// means the default ".executor/<engine-id>" (spec §6).
	CachePath string
	// PrintTraceback controls whether captured job exceptions are logged
	// with a full error chain (true) or only at debug level (false).
	PrintTraceback bool
	// KwargsInjectKey is the argument name a callable names to receive the
	// engine handle. Empty disables injection outright (distinct from the
	// default "__engine__").
	KwargsInjectKey string
	// DistributedClient is the external worker client backing the
	// Distributed backend kind. Nil means that backend kind is
	// unavailable: resolving it returns job.ErrNoBackend.
	DistributedClient backend.DistributedClient
}

// DefaultEngineSetting returns the zero-value-safe defaults spec §6
// documents (MaxJobs=20, CacheType=memory, PrintTraceback=true,
// KwargsInjectKey="__engine__").
func DefaultEngineSetting() EngineSetting {
	return EngineSetting{
		MaxJobs:         DefaultMaxJobs,
		CacheType:       CacheMemory,
		PrintTraceback:  true,
		KwargsInjectKey: DefaultInjectionKey,
	}
}

// normalize fills in a zero MaxJobs and an empty CacheType with the values
// DefaultEngineSetting uses. PrintTraceback and KwargsInjectKey are left as
// the caller set them, so in a caller-built EngineSetting{} tracebacks are
// off and an empty KwargsInjectKey disables injection.
func (s EngineSetting) normalize() EngineSetting {
	if s.MaxJobs == 0 {
		s.MaxJobs = DefaultMaxJobs
	}
	if s.CacheType == "" {
		s.CacheType = CacheMemory
	}
	return s
}

// cacheDir resolves the on-disk root for a disk-backed engine with the
// given id, applying spec §6's ".executor/<engine-id>" default.
func (s EngineSetting) cacheDir(engineID string) string {
	if s.CachePath != "" {
		return s.CachePath
	}
	return filepath.Join(".executor", engineID)
}

// FromConfiguration loads an EngineSetting from a config.Configuration
// (spec AMBIENT STACK: "EngineSetting is loadable from a
// config.Configuration"), falling back to DefaultEngineSetting for any key
// not present. Keys mirror the EngineSetting field names in snake_case,
// matching the teacher's Properties/environment naming convention.
func FromConfiguration(c config.Configuration) (EngineSetting, error) {
	s := DefaultEngineSetting()

	maxThread, err := c.GetAsInt("max_thread_jobs", 0)
	if err != nil {
		return s, fmt.Errorf("engine: parse max_thread_jobs: %w", err)
	}
	s.MaxThreadJobs = maxThread

	maxProcess, err := c.GetAsInt("max_process_jobs", 0)
	if err != nil {
		return s, fmt.Errorf("engine: parse max_process_jobs: %w", err)
	}
	s.MaxProcessJobs = maxProcess

	maxDistributed, err := c.GetAsInt("max_distributed_jobs", 0)
	if err != nil {
		return s, fmt.Errorf("engine: parse max_distributed_jobs: %w", err)
	}
	s.MaxDistributedJobs = maxDistributed

	maxJobs, err := c.GetAsInt("max_jobs", DefaultMaxJobs)
	if err != nil {
		return s, fmt.Errorf("engine: parse max_jobs: %w", err)
	}
	s.MaxJobs = maxJobs

	printTraceback, err := c.GetAsBool("print_traceback", true)
	if err != nil {
		return s, fmt.Errorf("engine: parse print_traceback: %w", err)
	}
	s.PrintTraceback = printTraceback

	s.CacheType = CacheType(c.Get("cache_type", string(CacheMemory)))
	s.CachePath = c.Get("cache_path", "")
	s.KwargsInjectKey = c.Get("kwargs_inject_key", DefaultInjectionKey)

	return s, nil
}

// LoadYAML decodes an EngineSetting document via this module's codec
// package (text/yaml, backed by goccy/go-yaml — spec AMBIENT
// STACK: "YAML settings files decode through the module's own codec
// package").
func LoadYAML(r yamlReader) (EngineSetting, error) {
	c, err := codec.GetDefault(ioutils.MimeTextYAML)
	if err != nil {
		return EngineSetting{}, fmt.Errorf("engine: resolve yaml codec: %w", err)
	}
	var doc yamlSettingsDoc
	if err := c.Read(r, &doc); err != nil {
		return EngineSetting{}, fmt.Errorf("engine: decode settings yaml: %w", err)
	}
	return doc.toEngineSetting().normalize(), nil
}

// yamlReader is the minimal io.Reader LoadYAML needs; declared locally so
// callers don't have to import io just to pass *os.File or bytes.Reader.
type yamlReader interface {
	Read(p []byte) (n int, err error)
}

// yamlSettingsDoc is the on-disk shape of an EngineSetting YAML file. The
// DistributedClient field has no serializable form (it's a live
// connection), matching the teacher's own JobFunc-is-never-persisted
// convention in store.Snapshot.
type yamlSettingsDoc struct {
	MaxThreadJobs      int            `yaml:"max_thread_jobs"`
	MaxProcessJobs     int            `yaml:"max_process_jobs"`
	MaxDistributedJobs int            `yaml:"max_distributed_jobs"`
	MaxJobs            int            `yaml:"max_jobs"`
	ResourceCaps       map[string]int `yaml:"resource_caps"`
	CacheType          string         `yaml:"cache_type"`
	CachePath          string         `yaml:"cache_path"`
	PrintTraceback     bool           `yaml:"print_traceback"`
	KwargsInjectKey    string         `yaml:"kwargs_inject_key"`
}

func (d yamlSettingsDoc) toEngineSetting() EngineSetting {
	return EngineSetting{
		MaxThreadJobs:      d.MaxThreadJobs,
		MaxProcessJobs:     d.MaxProcessJobs,
		MaxDistributedJobs: d.MaxDistributedJobs,
		MaxJobs:            d.MaxJobs,
		ResourceCaps:       d.ResourceCaps,
		CacheType:          CacheType(d.CacheType),
		CachePath:          d.CachePath,
		PrintTraceback:     d.PrintTraceback,
		KwargsInjectKey:    d.KwargsInjectKey,
	}
}
