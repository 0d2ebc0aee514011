// Package config loads the bridge configuration: server-wide settings and the
// per-language server definitions.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/walteh/kaklsp/pkg/position"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFileName       = "kaklsp.toml"
	DefaultTimeoutSeconds = 1800
)

type Config struct {
	Server    ServerConfig               `toml:"server" yaml:"server"`
	Languages map[string]*LanguageConfig `toml:"language" yaml:"language"`
}

type ServerConfig struct {
	// TimeoutSeconds shuts the bridge down after this long without editor
	// requests. Zero disables the timeout.
	TimeoutSeconds int    `toml:"timeout" yaml:"timeout" hcl:"timeout,optional"`
	OffsetEncoding string `toml:"offset_encoding" yaml:"offset_encoding" hcl:"offset_encoding,optional"`
}

type LanguageConfig struct {
	ID        string   `toml:"-" yaml:"-" hcl:"id,label"`
	Filetypes []string `toml:"filetypes" yaml:"filetypes" hcl:"filetypes,optional"`
	Globs     []string `toml:"globs" yaml:"globs" hcl:"globs,optional"`
	Roots     []string `toml:"roots" yaml:"roots" hcl:"roots,optional"`
	Command   string   `toml:"command" yaml:"command" hcl:"command"`
	Args      []string `toml:"args" yaml:"args" hcl:"args,optional"`

	WorkaroundServerSendsPlaintextLabeledAsMarkdown *bool `toml:"workaround_server_sends_plaintext_labeled_as_markdown" yaml:"workaround_server_sends_plaintext_labeled_as_markdown" hcl:"workaround_server_sends_plaintext_labeled_as_markdown,optional"`
}

// hclConfig is the block layout of the HCL format, where languages are
// labelled blocks rather than a table.
type hclConfig struct {
	Server    *ServerConfig     `hcl:"server,block"`
	Languages []*LanguageConfig `hcl:"language,block"`
}

func Default() *Config {
	return &Config{
		Server:    ServerConfig{TimeoutSeconds: DefaultTimeoutSeconds},
		Languages: map[string]*LanguageConfig{},
	}
}

// Load reads the config at path. The format follows the extension: .toml,
// .yaml/.yml or .hcl.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Errorf("parsing TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.Errorf("parsing TOML: unknown keys %s", strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	case ".hcl":
		if err := decodeHCL(data, path, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}

	for id, lang := range cfg.Languages {
		if lang == nil {
			lang = &LanguageConfig{}
			cfg.Languages[id] = lang
		}
		lang.ID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", path, err)
	}

	return cfg, nil
}

func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && hclsyntaxIdent(k) {
			vars[k] = cty.StringVal(v)
		}
	}
	return cty.ObjectVal(vars)
}

func hclsyntaxIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func decodeHCL(data []byte, path string, cfg *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": environment()},
	}

	var raw hclConfig
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &raw); diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}

	if raw.Server != nil {
		cfg.Server = *raw.Server
	}
	for _, lang := range raw.Languages {
		if _, dup := cfg.Languages[lang.ID]; dup {
			return errors.Errorf("decoding HCL: language %q declared twice", lang.ID)
		}
		cfg.Languages[lang.ID] = lang
	}
	return nil
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.TimeoutSeconds < 0 {
		result = multierror.Append(result, errors.Errorf("server.timeout must not be negative, got %d", c.Server.TimeoutSeconds))
	}
	if _, err := position.ParseOffsetEncoding(c.Server.OffsetEncoding); err != nil {
		result = multierror.Append(result, errors.Errorf("server.offset_encoding: %w", err))
	}

	for _, id := range c.LanguageIDs() {
		lang := c.Languages[id]
		if strings.TrimSpace(lang.Command) == "" {
			result = multierror.Append(result, errors.Errorf("language %q: command is required", id))
		}
		for _, g := range lang.Globs {
			if !doublestar.ValidatePattern(g) {
				result = multierror.Append(result, errors.Errorf("language %q: invalid glob %q", id, g))
			}
		}
	}

	return result.ErrorOrNil()
}

// LanguageIDs returns the configured language ids in a stable order.
func (c *Config) LanguageIDs() []string {
	ids := make([]string, 0, len(c.Languages))
	for id := range c.Languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OffsetEncoding returns the configured encoding, utf-16 when unset.
func (c *Config) OffsetEncoding() position.OffsetEncoding {
	enc, err := position.ParseOffsetEncoding(c.Server.OffsetEncoding)
	if err != nil {
		return position.UTF16
	}
	return enc
}

// ForcePlaintext reports whether markdown from the language's server should be
// shown as plain text.
func (c *Config) ForcePlaintext(languageID string) bool {
	lang, ok := c.Languages[languageID]
	if !ok || lang.WorkaroundServerSendsPlaintextLabeledAsMarkdown == nil {
		return false
	}
	return *lang.WorkaroundServerSendsPlaintextLabeledAsMarkdown
}

// LanguageFor picks the language of a buffer, by editor filetype first and by
// path glob second.
func (c *Config) LanguageFor(path, filetype string) (*LanguageConfig, bool) {
	ids := c.LanguageIDs()

	if filetype != "" {
		for _, id := range ids {
			for _, ft := range c.Languages[id].Filetypes {
				if ft == filetype {
					return c.Languages[id], true
				}
			}
		}
	}

	slashed := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, id := range ids {
		for _, g := range c.Languages[id].Globs {
			if ok, _ := doublestar.Match(g, slashed); ok {
				return c.Languages[id], true
			}
		}
	}

	return nil, false
}

// FindRoot walks up from the buffer's directory to the first directory that
// contains one of the language's root markers. It falls back to the buffer's
// directory.
func (l *LanguageConfig) FindRoot(fs afero.Fs, buffile string) string {
	start := filepath.Dir(buffile)
	for dir := start; ; dir = filepath.Dir(dir) {
		for _, marker := range l.Roots {
			if matches, err := afero.Glob(fs, filepath.Join(dir, marker)); err == nil && len(matches) > 0 {
				return dir
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	return start
}
