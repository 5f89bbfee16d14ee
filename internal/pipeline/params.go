package pipeline

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sgino209/tracxpoint-imgenhance/internal/filters"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type Kind string

const (
	KindFloat  Kind = "float"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
	KindMode   Kind = "mode"
	KindKernel Kind = "kernel"
)

// Param describes one overridable Config field. The table returned by
// Params is the only place parameter names are declared; flags, config
// files and the params listing are all built from it.
type Param struct {
	Name  string
	Kind  Kind
	Usage string

	get func(*Config) string
	set func(*Config, string) error
}

// Default is the parameter's value in DefaultConfig, formatted.
func (p Param) Default() string {
	c := DefaultConfig()
	return p.get(&c)
}

func (p Param) Get(c *Config) string {
	return p.get(c)
}

var params = []Param{
	floatParam("gamma", "tone curve exponent, out = max*(in/max)^(1/gamma); the default is an extreme near-binary brightening",
		func(c *Config) *float64 { return &c.Gamma }),
	boolParam("adaptive-equalize", "run tiled contrast-limited equalization on lightness",
		func(c *Config) *bool { return &c.AdaptiveEqualize }),
	boolParam("global-equalize", "run global histogram equalization on lightness after the adaptive pass",
		func(c *Config) *bool { return &c.GlobalEqualize }),
	intParam("tile-cols", "adaptive equalization tile columns",
		func(c *Config) *int { return &c.TileCols }),
	intParam("tile-rows", "adaptive equalization tile rows",
		func(c *Config) *int { return &c.TileRows }),
	floatParam("clip-limit", "adaptive equalization clip limit, 0 disables clipping",
		func(c *Config) *float64 { return &c.ClipLimit }),
	{
		Name:  "denoise",
		Kind:  KindMode,
		Usage: "spatial denoise mode: median, bilateral or none",
		get:   func(c *Config) string { return string(c.DenoiseMode) },
		set: func(c *Config, s string) error {
			m, err := filters.ParseDenoiseMode(s)
			if err != nil {
				return err
			}
			c.DenoiseMode = m
			return nil
		},
	},
	intParam("median-kernel", "median filter kernel size, odd",
		func(c *Config) *int { return &c.MedianKernel }),
	intParam("bilateral-diameter", "bilateral filter neighbourhood diameter",
		func(c *Config) *int { return &c.BilateralDiameter }),
	floatParam("sigma-color", "bilateral filter color sigma, on the 8-bit scale",
		func(c *Config) *float64 { return &c.SigmaColor }),
	floatParam("sigma-space", "bilateral filter spatial sigma, in pixels",
		func(c *Config) *float64 { return &c.SigmaSpace }),
	intParam("temporal-window", "frames used around the target by temporal denoising, odd",
		func(c *Config) *int { return &c.TemporalWindow }),
	floatParam("temporal-strength", "temporal non-local means filter strength h",
		func(c *Config) *float64 { return &c.TemporalStrength }),
	intParam("template-size", "temporal non-local means patch size, odd",
		func(c *Config) *int { return &c.TemplateSize }),
	intParam("search-size", "temporal non-local means search window, odd",
		func(c *Config) *int { return &c.SearchSize }),
	{
		Name:  "sharpen-kernel",
		Kind:  KindKernel,
		Usage: "sharpening kernel as n*n comma separated weights, row-major",
		get:   func(c *Config) string { return c.SharpenKernel.String() },
		set: func(c *Config, s string) error {
			k, err := filters.ParseKernel(s)
			if err != nil {
				return err
			}
			c.SharpenKernel = k
			return nil
		},
	},
	floatParam("saturation", "HSV saturation factor, 1 keeps colors unchanged",
		func(c *Config) *float64 { return &c.Saturation }),
	boolParam("colorize", "replace every pixel's hue with --hue after the saturation stage",
		func(c *Config) *bool { return &c.Colorize }),
	floatParam("hue", "hue in degrees used by --colorize",
		func(c *Config) *float64 { return &c.Hue }),
}

// Params returns the parameter table in declaration order.
func Params() []Param {
	return slices.Clone(params)
}

func LookupParam(name string) (Param, bool) {
	i := slices.IndexFunc(params, func(p Param) bool { return p.Name == name })
	if i < 0 {
		return Param{}, false
	}
	return params[i], true
}

// Set parses value into the field named by name.
func (c *Config) Set(name, value string) error {
	p, ok := LookupParam(name)
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", raster.ErrInvalidParameter, name)
	}
	if err := p.set(c, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func floatParam(name, usage string, field func(*Config) *float64) Param {
	return Param{
		Name:  name,
		Kind:  KindFloat,
		Usage: usage,
		get:   func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, s string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", raster.ErrInvalidParameter, s)
			}
			*field(c) = v
			return nil
		},
	}
}

func intParam(name, usage string, field func(*Config) *int) Param {
	return Param{
		Name:  name,
		Kind:  KindInt,
		Usage: usage,
		get:   func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, s string) error {
			v, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", raster.ErrInvalidParameter, s)
			}
			*field(c) = v
			return nil
		},
	}
}

func boolParam(name, usage string, field func(*Config) *bool) Param {
	return Param{
		Name:  name,
		Kind:  KindBool,
		Usage: usage,
		get:   func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, s string) error {
			v, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("%w: %q is not a boolean", raster.ErrInvalidParameter, s)
			}
			*field(c) = v
			return nil
		},
	}
}

type flagValue struct {
	param Param
	cfg   *Config
}

func (v *flagValue) String() string     { return v.param.get(v.cfg) }
func (v *flagValue) Set(s string) error { return v.param.set(v.cfg, s) }
func (v *flagValue) Type() string       { return string(v.param.Kind) }

// BindFlags registers one flag per parameter on fs. The flags write into a
// private Config; ApplyFlags copies the ones the user actually set, which
// lets flags override a config file loaded afterwards.
func BindFlags(fs *pflag.FlagSet) {
	scratch := DefaultConfig()
	for _, p := range params {
		fs.Var(&flagValue{param: p, cfg: &scratch}, p.Name, p.Usage)
		if p.Kind == KindBool {
			fs.Lookup(p.Name).NoOptDefVal = "true"
		}
	}
}

// ApplyFlags copies every parameter flag changed on the command line into cfg.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if _, ok := LookupParam(f.Name); ok {
			err = cfg.Set(f.Name, f.Value.String())
		}
	})
	return err
}

// LoadConfig overlays the parameters in a YAML file onto cfg. The file is a
// flat mapping of parameter names to values; unknown names are rejected.
func LoadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := DecodeConfig(data, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func DecodeConfig(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", raster.ErrInvalidParameter, err)
	}
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		if err := cfg.Set(name, yamlScalar(raw[name])); err != nil {
			return err
		}
	}
	return nil
}

// yamlScalar formats a decoded YAML value the way the command line would
// spell it. Sequences become comma separated lists, for kernels.
func yamlScalar(v any) string {
	switch v := v.(type) {
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// EncodeConfig writes cfg as a YAML config file in table order.
func EncodeConfig(cfg Config) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range params {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Name, HeadComment: p.Usage},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.get(&cfg)},
		)
	}
	return yaml.Marshal(doc)
}
