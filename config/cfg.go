package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	HyphenationConfig struct {
		// Language is a BCP 47 tag, compilation falls back to plain breaking
		// when no pattern dictionary exists for it.
		Enable   bool   `yaml:"enable"`
		Language string `yaml:"language"`
	}

	ImagesConfig struct {
		// Dir is the base directory image sources resolve against. Relative
		// sources in the document are joined to it.
		Dir string `yaml:"dir,omitempty" sanitize:"path_clean"`
	}

	DumpsConfig struct {
		TextRender bool `yaml:"text_render"`
		Database   bool `yaml:"database"`
	}

	DocumentConfig struct {
		StylesheetPath        string            `yaml:"stylesheet_path" sanitize:"assure_file_access"`
		OutputNameTemplate    string            `yaml:"output_name_template"`
		FileNameTransliterate bool              `yaml:"file_name_transliterate"`
		MaxPasses             int               `yaml:"max_passes" validate:"min=1,max=16"`
		Hyphenation           HyphenationConfig `yaml:"hyphenation"`
		Images                ImagesConfig      `yaml:"images"`
		Dumps                 DumpsConfig       `yaml:"dumps"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// Must match the yaml tag of the corresponding field above.
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

// Name templates are expanded later against document metadata, never during
// configuration processing.
var templateOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// decodeInto decodes YAML into cfg rejecting keys that do not correspond to
// a defined field.
func decodeInto(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return nil
}

// finish sanitizes and validates a fully assembled configuration.
func finish(cfg *Config) error {
	if err := gencfg.Sanitize(cfg); err != nil {
		return fmt.Errorf("failed to sanitize configuration: %w", err)
	}
	if err := gencfg.Validate(cfg); err != nil {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}
	return nil
}

// LoadConfiguration expands the built-in template for defaults, overlays the
// file at path on top when one is given, then sanitizes and validates the
// assembled result.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {

	data, err := gencfg.Process(ConfigTmpl, append(templateOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}

	cfg := &Config{}
	if err := decodeInto(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}

	if len(path) > 0 {
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeInto(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Prepare expands the configuration template and returns it ready to be
// written out as a starter configuration file.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, templateOptions...)
}

// Dump serializes the actual in-memory configuration.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
