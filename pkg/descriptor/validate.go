// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invowk/fnpack/pkg/types"
)

// Open loads the descriptor document at path and validates it.
func Open(path string) (*Descriptor, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Validate(doc, path)
}

// Validate checks that doc has a complete deployment block and converts it
// into a Descriptor with its absolute source path attached. It has no side
// effects.
func Validate(doc *Document, path string) (*Descriptor, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &DescriptorUnreadableError{DescriptorPath: path, Err: err}
	}

	if doc == nil || doc.CloudFormation == nil || doc.CloudFormation.Lambda == nil {
		return nil, &MissingDeploymentMetadataError{DescriptorPath: absPath}
	}

	lambda := doc.CloudFormation.Lambda
	var missing []string
	if strings.TrimSpace(lambda.Type) == "" {
		missing = append(missing, "Type")
	}
	if lambda.Properties == nil {
		missing = append(missing, "Properties")
	} else {
		if strings.TrimSpace(lambda.Properties.Runtime) == "" {
			missing = append(missing, "Properties.Runtime")
		}
		if strings.TrimSpace(lambda.Properties.Handler) == "" {
			missing = append(missing, "Properties.Handler")
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteDeploymentMetadataError{DescriptorPath: absPath, Fields: missing}
	}

	handler := types.HandlerRef(strings.TrimSpace(lambda.Properties.Handler))
	if err := handler.Validate(); err != nil {
		return nil, &IncompleteDeploymentMetadataError{
			DescriptorPath: absPath,
			Fields:         []string{"Properties.Handler"},
			Cause:          err,
		}
	}

	name := types.FunctionName(strings.TrimSpace(doc.Name))
	if name == "" {
		name = types.FunctionName(filepath.Base(filepath.Dir(absPath)))
	}
	if err := name.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}

	return &Descriptor{
		Name: name,
		Path: absPath,
		Deployment: Deployment{
			Type:    strings.TrimSpace(lambda.Type),
			Runtime: strings.TrimSpace(lambda.Properties.Runtime),
			Handler: handler,
		},
		Package: packageOptions(doc.Package),
	}, nil
}

func packageOptions(pkg *PackageBlock) PackageOptions {
	opts := PackageOptions{Optimize: RawSettings{}}
	if pkg == nil {
		return opts
	}
	opts.ExcludePatterns = slices.Clone(pkg.ExcludePatterns)

	optimize := pkg.Optimize
	if optimize == nil {
		return opts
	}
	opts.IncludePaths = slices.Clone(optimize.IncludePaths)

	if optimize.Builder == nil || strings.TrimSpace(*optimize.Builder) == "" {
		return opts
	}

	transforms := make([]string, 0, len(optimize.Transform)+1)
	if optimize.Babel {
		transforms = append(transforms, TransformBabel)
	}
	for _, t := range optimize.Transform {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(transforms, t) {
			transforms = append(transforms, t)
		}
	}

	opts.Optimize = BundledSettings{
		Builder:    strings.ToLower(strings.TrimSpace(*optimize.Builder)),
		Minify:     optimize.Minify,
		Transforms: transforms,
		Exclude:    slices.Clone(optimize.Exclude),
		Ignore:     slices.Clone(optimize.Ignore),
	}
	return opts
}
