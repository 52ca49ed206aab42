package raster

import (
	"strings"
)

// DirectIOMode selects how RasterIO decides between the direct and the block cache paths
type DirectIOMode int

const (
	// DirectIOHeuristic lets the band decide from the request and the cache content
	DirectIOHeuristic DirectIOMode = iota
	// DirectIOAlways uses the direct path unless the band is mirrored
	DirectIOAlways
	// DirectIONever always goes through the block cache
	DirectIONever
)

// Default thresholds of the direct IO heuristic
const (
	DefaultLargeLineThreshold  = 50000
	DefaultNarrowWindowRatio   = 0.4
	DefaultUncachedLineDivisor = 20
	DefaultBlockCacheBytes     = 16 * 1024 * 1024
)

// IOConfig configures the IO strategy of the bands
type IOConfig struct {
	DirectIO DirectIOMode
	// LargeLineThreshold is the minimum size in bytes of a scanline for the direct path
	LargeLineThreshold int
	// NarrowWindowRatio is the maximum fraction of the scanline that a request can cover
	// to use the direct path
	NarrowWindowRatio float64
	// The direct path is used if more than 1/UncachedLineDivisor of the lines
	// of the request are not in the block cache
	UncachedLineDivisor int
	// BlockCacheBytes is the size of the block cache of each band
	BlockCacheBytes int
}

// DefaultIOConfig returns the configuration used when none is provided
func DefaultIOConfig() IOConfig {
	return IOConfig{
		DirectIO:            DirectIOHeuristic,
		LargeLineThreshold:  DefaultLargeLineThreshold,
		NarrowWindowRatio:   DefaultNarrowWindowRatio,
		UncachedLineDivisor: DefaultUncachedLineDivisor,
		BlockCacheBytes:     DefaultBlockCacheBytes,
	}
}

// withDefaults replaces the zero values of cfg by the default ones
func (cfg IOConfig) withDefaults() IOConfig {
	def := DefaultIOConfig()
	if cfg.LargeLineThreshold <= 0 {
		cfg.LargeLineThreshold = def.LargeLineThreshold
	}
	if cfg.NarrowWindowRatio <= 0 {
		cfg.NarrowWindowRatio = def.NarrowWindowRatio
	}
	if cfg.UncachedLineDivisor <= 0 {
		cfg.UncachedLineDivisor = def.UncachedLineDivisor
	}
	if cfg.BlockCacheBytes <= 0 {
		cfg.BlockCacheBytes = def.BlockCacheBytes
	}
	return cfg
}

// ParseDirectIOMode converts the value of a configuration toggle:
// empty or HEURISTIC means DirectIOHeuristic, NO/FALSE/OFF/0/NEVER mean DirectIONever, anything else DirectIOAlways
func ParseDirectIOMode(v string) DirectIOMode {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "HEURISTIC":
		return DirectIOHeuristic
	case "NO", "FALSE", "OFF", "0", "NEVER":
		return DirectIONever
	}
	return DirectIOAlways
}

func (m DirectIOMode) String() string {
	switch m {
	case DirectIOAlways:
		return "always"
	case DirectIONever:
		return "never"
	}
	return "heuristic"
}
