// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/fnpack/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed descriptor_schema.cue
var descriptorSchema []byte

type (
	// Document is the raw descriptor document as written by the user.
	// Pointer fields distinguish an absent block from an empty one.
	Document struct {
		Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
		CloudFormation *CloudFormation `json:"cloudFormation,omitempty" yaml:"cloudFormation,omitempty"`
		Package        *PackageBlock   `json:"package,omitempty" yaml:"package,omitempty"`
	}

	// CloudFormation holds the deployment-relevant resources of a function.
	CloudFormation struct {
		Lambda *LambdaBlock `json:"lambda,omitempty" yaml:"lambda,omitempty"`
	}

	// LambdaBlock is the deployment block: a resource type tag plus properties.
	LambdaBlock struct {
		Type       string            `json:"Type,omitempty" yaml:"Type,omitempty"`
		Properties *LambdaProperties `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	}

	// LambdaProperties are the runtime attributes fnpack needs. Other
	// properties (memory, role, timeout) are ignored.
	LambdaProperties struct {
		Runtime string `json:"Runtime,omitempty" yaml:"Runtime,omitempty"`
		Handler string `json:"Handler,omitempty" yaml:"Handler,omitempty"`
	}

	// PackageBlock holds the packaging options.
	PackageBlock struct {
		ExcludePatterns []string       `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`
		Optimize        *OptimizeBlock `json:"optimize,omitempty" yaml:"optimize,omitempty"`
	}

	// OptimizeBlock selects between shipping the project as-is (no builder)
	// and bundling the handler's dependency graph.
	OptimizeBlock struct {
		Builder      *string    `json:"builder,omitempty" yaml:"builder,omitempty"`
		Minify       bool       `json:"minify,omitempty" yaml:"minify,omitempty"`
		Babel        bool       `json:"babel,omitempty" yaml:"babel,omitempty"`
		Transform    StringList `json:"transform,omitempty" yaml:"transform,omitempty"`
		Exclude      []string   `json:"exclude,omitempty" yaml:"exclude,omitempty"`
		Ignore       []string   `json:"ignore,omitempty" yaml:"ignore,omitempty"`
		IncludePaths []string   `json:"includePaths,omitempty" yaml:"includePaths,omitempty"`
	}

	// StringList accepts either a single string or a list of strings.
	StringList []string
)

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = singleton(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*l = singleton(single)
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*l = many
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

func singleton(s string) StringList {
	if s == "" {
		return nil
	}
	return StringList{s}
}

// Load reads and parses the descriptor document at path. YAML documents
// (.yaml, .yml) are decoded with yaml.v3 and TOML documents are converted
// to JSON; everything else is treated as CUE, which includes JSON.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DescriptorUnreadableError{DescriptorPath: path, Err: err}
	}

	doc, err := Parse(data, path)
	if err != nil {
		return nil, &DescriptorUnreadableError{DescriptorPath: path, Err: err}
	}
	return doc, nil
}

// Parse decodes descriptor bytes. The file name selects the decoder and is
// used in error messages.
func Parse(data []byte, filename string) (*Document, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return &doc, nil
	case ".toml":
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		// Route through CUE so TOML gets the same schema checks as JSON.
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return parseCUE(converted, filename)
	default:
		return parseCUE(data, filename)
	}
}

func parseCUE(data []byte, filename string) (*Document, error) {
	result, err := cueutil.ParseAndDecode[Document](
		descriptorSchema,
		data,
		"#Descriptor",
		cueutil.WithFilename(filename),
	)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}
