// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"maps"
	"slices"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// TransformJSX parses .js sources as JSX.
const TransformJSX = "jsx"

// targetTransforms maps downlevel transform names to esbuild targets.
// "babel" is the legacy spelling of an ES2015 downlevel.
var targetTransforms = map[string]esbuild.Target{
	"babel":  esbuild.ES2015,
	"es2015": esbuild.ES2015,
	"es2016": esbuild.ES2016,
	"es2017": esbuild.ES2017,
	"es2018": esbuild.ES2018,
	"es2019": esbuild.ES2019,
	"es2020": esbuild.ES2020,
	"es2021": esbuild.ES2021,
	"es2022": esbuild.ES2022,
	"esnext": esbuild.ESNext,
}

// SupportedTransforms returns the sorted list of accepted transform names.
func SupportedTransforms() []string {
	names := slices.Collect(maps.Keys(targetTransforms))
	names = append(names, TransformJSX)
	slices.Sort(names)
	return names
}

// transformSettings is the esbuild configuration derived from a transform list.
type transformSettings struct {
	target esbuild.Target
	loader map[string]esbuild.Loader
}

// resolveTransforms converts transform names into esbuild settings. When
// several downlevel targets are listed the oldest one wins.
func resolveTransforms(names []string) (transformSettings, error) {
	settings := transformSettings{target: esbuild.ESNext}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == TransformJSX {
			settings.loader = map[string]esbuild.Loader{".js": esbuild.LoaderJSX}
			continue
		}
		target, ok := targetTransforms[name]
		if !ok {
			return transformSettings{}, &UnknownTransformError{Name: raw}
		}
		if targetRank(target) < targetRank(settings.target) {
			settings.target = target
		}
	}
	return settings, nil
}

func targetRank(t esbuild.Target) int {
	switch t {
	case esbuild.ES2015:
		return 2015
	case esbuild.ES2016:
		return 2016
	case esbuild.ES2017:
		return 2017
	case esbuild.ES2018:
		return 2018
	case esbuild.ES2019:
		return 2019
	case esbuild.ES2020:
		return 2020
	case esbuild.ES2021:
		return 2021
	case esbuild.ES2022:
		return 2022
	default:
		return 9999
	}
}
