// Package config resolves analysis parameters from flags, environment
// (OLIGOSCREEN_*) and an optional config file through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"oligoscreen/internal/model"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. OLIGOSCREEN_MIN_LENGTH.
const EnvPrefix = "OLIGOSCREEN"

// Keys shared by flags, environment and config files.
const (
	KeyMinLength      = "min-length"
	KeyMaxLength      = "max-length"
	KeyResolution     = "resolution"
	KeyCoverage       = "coverage"
	KeyExcludeN       = "exclude-n"
	KeyMethod         = "method"
	KeyMaxAmbiguities = "max-ambiguities"
	KeyTargetPct      = "target-pct"
	KeyMatch          = "match"
	KeyMismatch       = "mismatch"
	KeyGapOpen        = "gap-open"
	KeyGapExtend      = "gap-extend"
	KeyMaxMismatches  = "max-mismatches"
	KeyThreads        = "threads"
)

// Settings is the flat, file-friendly form of model.AnalysisParams.
type Settings struct {
	MinLength      int     `mapstructure:"min-length"`
	MaxLength      int     `mapstructure:"max-length"`
	Resolution     int     `mapstructure:"resolution"`
	Coverage       float64 `mapstructure:"coverage"`
	ExcludeN       bool    `mapstructure:"exclude-n"`
	Method         string  `mapstructure:"method"`
	MaxAmbiguities int     `mapstructure:"max-ambiguities"`
	TargetPct      int     `mapstructure:"target-pct"`
	Match          int     `mapstructure:"match"`
	Mismatch       int     `mapstructure:"mismatch"`
	GapOpen        int     `mapstructure:"gap-open"`
	GapExtend      int     `mapstructure:"gap-extend"`
	MaxMismatches  int     `mapstructure:"max-mismatches"`
	Threads        int     `mapstructure:"threads"`
}

// Defaults mirrors model.DefaultParams. MaxAmbiguities -1 means "1" for
// the fixed method and unbounded for incremental.
func Defaults() Settings {
	p := model.DefaultParams()
	return Settings{
		MinLength:      p.MinOligoLength,
		MaxLength:      p.MaxOligoLength,
		Resolution:     p.Resolution,
		Coverage:       p.CoverageThreshold,
		ExcludeN:       p.ExcludeN,
		Method:         string(p.Method.Kind()),
		MaxAmbiguities: -1,
		TargetPct:      50,
		Match:          p.Pairwise.MatchScore,
		Mismatch:       p.Pairwise.MismatchScore,
		GapOpen:        p.Pairwise.GapOpenPenalty,
		GapExtend:      p.Pairwise.GapExtendPenalty,
		MaxMismatches:  p.Pairwise.MaxMismatches,
		Threads:        p.Threads,
	}
}

// Map returns s keyed the way viper sees it.
func (s Settings) Map() map[string]any {
	return map[string]any{
		KeyMinLength:      s.MinLength,
		KeyMaxLength:      s.MaxLength,
		KeyResolution:     s.Resolution,
		KeyCoverage:       s.Coverage,
		KeyExcludeN:       s.ExcludeN,
		KeyMethod:         s.Method,
		KeyMaxAmbiguities: s.MaxAmbiguities,
		KeyTargetPct:      s.TargetPct,
		KeyMatch:          s.Match,
		KeyMismatch:       s.Mismatch,
		KeyGapOpen:        s.GapOpen,
		KeyGapExtend:      s.GapExtend,
		KeyMaxMismatches:  s.MaxMismatches,
		KeyThreads:        s.Threads,
	}
}

// New returns a viper instance with defaults and environment lookup set.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v, Defaults())
	return v
}

// SetDefaults registers every key of s as a viper default.
func SetDefaults(v *viper.Viper, s Settings) {
	for k, val := range s.Map() {
		v.SetDefault(k, val)
	}
}

// ReadFile merges a YAML, JSON or TOML file (by extension) into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// AddFlags registers the analysis flags on fs with their defaults.
func AddFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.Int(KeyMinLength, d.MinLength, "Minimum oligo length")
	fs.Int(KeyMaxLength, d.MaxLength, "Maximum oligo length")
	fs.Int(KeyResolution, d.Resolution, "Step between window start positions")
	fs.Float64(KeyCoverage, d.Coverage, "Coverage threshold percent (0,100]")
	fs.Bool(KeyExcludeN, d.ExcludeN, "Never widen a column to N when merging variants")
	fs.String(KeyMethod, "none", "Variant method: none | fixed | incremental")
	fs.Int(KeyMaxAmbiguities, d.MaxAmbiguities, "Degenerate positions per variant (fixed: default 1; incremental: <0 unbounded)")
	fs.Int(KeyTargetPct, d.TargetPct, "Incremental target percent of remaining sequences (1..100)")
	fs.Int(KeyMatch, d.Match, "Alignment match score")
	fs.Int(KeyMismatch, d.Mismatch, "Alignment mismatch score")
	fs.Int(KeyGapOpen, d.GapOpen, "Gap open penalty")
	fs.Int(KeyGapExtend, d.GapExtend, "Gap extend penalty")
	fs.Int(KeyMaxMismatches, d.MaxMismatches, "Maximum mismatches for an accepted match")
	fs.Int(KeyThreads, d.Threads, "Worker goroutines (0 = all CPUs)")
}

// BindFlags makes flags set on the command line take precedence in v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	return v.BindPFlags(fs)
}

// Load decodes v into validated analysis parameters.
func Load(v *viper.Viper) (model.AnalysisParams, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return model.AnalysisParams{}, fmt.Errorf("%w: %v", model.ErrInvalidParams, err)
	}
	return s.Params()
}

// Params converts s and validates the result.
func (s Settings) Params() (model.AnalysisParams, error) {
	kind, err := model.ParseMethodKind(s.Method)
	if err != nil {
		return model.AnalysisParams{}, err
	}
	maxAmb := s.MaxAmbiguities
	if kind == model.KindFixedAmbiguities && maxAmb < 0 {
		maxAmb = 1
	}
	m, err := model.NewMethod(kind, maxAmb, s.TargetPct)
	if err != nil {
		return model.AnalysisParams{}, err
	}
	p := model.AnalysisParams{
		Method:            m,
		MinOligoLength:    s.MinLength,
		MaxOligoLength:    s.MaxLength,
		Resolution:        s.Resolution,
		CoverageThreshold: s.Coverage,
		ExcludeN:          s.ExcludeN,
		Pairwise: model.PairwiseParams{
			MatchScore:       s.Match,
			MismatchScore:    s.Mismatch,
			GapOpenPenalty:   s.GapOpen,
			GapExtendPenalty: s.GapExtend,
			MaxMismatches:    s.MaxMismatches,
		},
		Threads: s.Threads,
	}
	if err := p.Validate(); err != nil {
		return model.AnalysisParams{}, err
	}
	return p, nil
}
