package worklist

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/viper"

	"oligoscreen/internal/config"
	"oligoscreen/internal/fasta"
	"oligoscreen/internal/model"
)

// Job captures everything one screening run needs at the moment it is
// queued. Threads in Params is replaced by the queue's setting when the
// job starts.
type Job struct {
	ID               uint64
	TemplateFile     string
	Template         model.Template
	ReferenceFiles   []string
	References       model.SequenceSet
	ExclusivityFiles []string
	Exclusivity      *model.SequenceSet // nil disables differential scoring
	Params           model.AnalysisParams
}

// Spec is one entry of a jobs file. Analysis keys set on the entry
// override the file-level ones.
type Spec struct {
	Template    string
	References  []string
	Exclusivity []string
	Settings    config.Settings
}

// LoadSpecs reads a jobs file (YAML, JSON or TOML by extension):
//
//	threads: 4
//	method: fixed
//	jobs:
//	  - template: t.fa
//	    references: [refs.fa]
//	    exclusivity: [offtarget.fa]
//	    coverage: 90
//
// Top-level analysis keys apply to every job on top of base. The
// returned thread count is the resolved top-level one.
func LoadSpecs(path string, base *viper.Viper) ([]Spec, int, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, 0, fmt.Errorf("read jobs %s: %w", path, err)
	}
	var shared config.Settings
	if err := base.Unmarshal(&shared); err != nil {
		return nil, 0, err
	}
	top := viper.New()
	config.SetDefaults(top, shared)
	if err := top.MergeConfigMap(v.AllSettings()); err != nil {
		return nil, 0, fmt.Errorf("read jobs %s: %w", path, err)
	}
	if err := top.Unmarshal(&shared); err != nil {
		return nil, 0, fmt.Errorf("read jobs %s: %w", path, err)
	}

	raw := jobEntries(v.Get("jobs"))
	if len(raw) == 0 {
		return nil, 0, fmt.Errorf("%s: no jobs", path)
	}
	dir := filepath.Dir(path)
	specs := make([]Spec, 0, len(raw))
	for i, m := range raw {
		if m == nil {
			return nil, 0, fmt.Errorf("%s: job %d is not a mapping", path, i+1)
		}
		jv := viper.New()
		config.SetDefaults(jv, shared)
		if err := jv.MergeConfigMap(m); err != nil {
			return nil, 0, fmt.Errorf("%s: job %d: %w", path, i+1, err)
		}
		var s Spec
		if err := jv.Unmarshal(&s.Settings); err != nil {
			return nil, 0, fmt.Errorf("%s: job %d: %w", path, i+1, err)
		}
		s.Template = resolve(dir, jv.GetString("template"))
		for _, p := range jv.GetStringSlice("references") {
			s.References = append(s.References, resolve(dir, p))
		}
		for _, p := range jv.GetStringSlice("exclusivity") {
			s.Exclusivity = append(s.Exclusivity, resolve(dir, p))
		}
		if s.Template == "" || len(s.References) == 0 {
			return nil, 0, fmt.Errorf("%s: job %d needs template and references", path, i+1)
		}
		specs = append(specs, s)
	}
	return specs, shared.Threads, nil
}

// jobEntries accepts the list shapes the YAML, JSON and TOML decoders
// produce. Entries that are not mappings come back nil.
func jobEntries(v any) []map[string]any {
	switch l := v.(type) {
	case []map[string]any:
		return l
	case []any:
		out := make([]map[string]any, len(l))
		for i, e := range l {
			out[i], _ = e.(map[string]any)
		}
		return out
	}
	return nil
}

// resolve makes relative paths in a jobs file relative to the file.
func resolve(dir, p string) string {
	if p == "" || p == "-" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Build reads the inputs a spec names and resolves its parameters.
func Build(s Spec) (Job, error) {
	params, err := s.Settings.Params()
	if err != nil {
		return Job{}, err
	}
	tmpl, err := fasta.ReadTemplate(s.Template)
	if err != nil {
		return Job{}, err
	}
	refs, err := fasta.ReadSets(s.References...)
	if err != nil {
		return Job{}, err
	}
	j := Job{
		TemplateFile:   filepath.Base(s.Template),
		Template:       tmpl,
		ReferenceFiles: s.References,
		References:     refs,
		Params:         params,
	}
	if len(s.Exclusivity) > 0 {
		excl, err := fasta.ReadSets(s.Exclusivity...)
		if err != nil {
			return Job{}, err
		}
		j.ExclusivityFiles = s.Exclusivity
		j.Exclusivity = &excl
	}
	return j, nil
}

// SanitizeName keeps letters, digits, '-', '_' and '.'; anything else
// becomes '_'.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, name)
}

// AutoSaveKey names the stored results of job id.
func AutoSaveKey(templateFile string, id uint64) string {
	return SanitizeName(templateFile) + "_" + strconv.FormatUint(id, 10) + ".json"
}
