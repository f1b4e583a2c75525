// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	DescriptorUnreadableId Id = iota + 1
	MissingDeploymentMetadataId
	IncompleteDeploymentMetadataId
	InvalidFunctionNameId
	UnsupportedBuilderId
	InvalidExcludePatternId
	ProjectCopyFailedId
	EnvironmentFetchFailedId
	BundleBuildFailedId
	MinificationFailedId
	IncludePathNotFoundId
	ArchiveTooLargeId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external references that might help the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue guide with the given glamour style ("dark",
// "light", "notty", or a path to a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	descriptorUnreadableIssue = &Issue{
		id: DescriptorUnreadableId,
		mdMsg: `
# The function descriptor could not be read

fnpack reads the descriptor as CUE or JSON (` + "`.json`, `.cue`" + `), YAML
(` + "`.yaml`, `.yml`" + `) or TOML (` + "`.toml`" + `), chosen by file extension.

## Things you can try:
- Check that the path points at the descriptor file, not at its directory
- Validate the syntax of the document:
~~~
$ fnpack validate path/to/awsm.json
~~~
- Make sure every ` + "`package.optimize`" + ` field has the expected type
  (` + "`minify`" + ` and ` + "`babel`" + ` are booleans, ` + "`transform`" + ` is a string or a list)`,
	}

	missingDeploymentMetadataIssue = &Issue{
		id: MissingDeploymentMetadataId,
		mdMsg: `
# The descriptor has no deployment block

Packaging needs ` + "`cloudFormation.lambda`" + ` to learn the runtime and the handler.

## Example:
~~~json
{
  "cloudFormation": {
    "lambda": {
      "Type": "AWS::Lambda::Function",
      "Properties": {"Runtime": "nodejs", "Handler": "users/show/index.handler"}
    }
  }
}
~~~`,
	}

	incompleteDeploymentMetadataIssue = &Issue{
		id: IncompleteDeploymentMetadataId,
		mdMsg: `
# The deployment block is incomplete

` + "`Type`, `Properties`, `Properties.Runtime` and `Properties.Handler`" + ` are all required.

## Things you can try:
- Add every field named in the error message
- Write the handler as ` + "`module.exportedFunction`" + `, for example
  ` + "`users/show/index.handler`" + ` exports ` + "`handler`" + ` from ` + "`users/show/index.js`",
	}

	invalidFunctionNameIssue = &Issue{
		id: InvalidFunctionNameId,
		mdMsg: `
# The function name is not usable

The name becomes part of the build directory (` + "`<name>@<ms>`" + `), so it must be a
single path element without separators.

## Things you can try:
- Set ` + "`name`" + ` explicitly in the descriptor
- Rename the directory that holds the descriptor`,
	}

	unsupportedBuilderIssue = &Issue{
		id: UnsupportedBuilderId,
		mdMsg: `
# The requested builder is not available

## Things you can try:
- Use one of the builders listed in the error message, for example:
~~~json
"optimize": {"builder": "esbuild", "minify": true}
~~~
- Remove ` + "`builder`" + ` (or set it to ` + "`null`" + `) to ship the project unbundled`,
		extLinks: []HttpLink{"https://esbuild.github.io/api/#bundle"},
	}

	invalidExcludePatternIssue = &Issue{
		id: InvalidExcludePatternId,
		mdMsg: `
# An exclude pattern is not a valid regular expression

Patterns in ` + "`package.excludePatterns`" + ` are regular expressions matched against
paths relative to the project root, using forward slashes.

## Things you can try:
- Escape literal dots and brackets: ` + "`\\\\.git`" + ` in JSON matches ` + "`.git`" + `
- Anchor patterns when you mean a whole path: ` + "`^node_modules$`",
		extLinks: []HttpLink{"https://pkg.go.dev/regexp/syntax"},
	}

	projectCopyFailedIssue = &Issue{
		id: ProjectCopyFailedId,
		mdMsg: `
# The project could not be copied into the build directory

## Things you can try:
- Check that every file under the project root is readable
- Check free space in the temporary directory (` + "`build.temp_dir`" + ` in the config)
- Exclude large or special files with ` + "`package.excludePatterns`",
	}

	environmentFetchFailedIssue = &Issue{
		id: EnvironmentFetchFailedId,
		mdMsg: `
# The stage environment file could not be fetched

fnpack downloads ` + "`envVars/<project>/<stage>/.env`" + ` from the project bucket
(the layout is configurable with ` + "`store.key_template`" + `).

## Things you can try:
- Check that the bucket, project and stage flags are correct
- Check your AWS credentials and region:
~~~
$ aws s3 ls s3://<bucket>/envVars/<project>/<stage>/
~~~
- For S3-compatible servers set ` + "`store.backend: \"minio\"`" + ` and ` + "`store.endpoint`" + `
- For offline builds set ` + "`store.backend: \"dir\"`" + ` and ` + "`store.dir`",
		extLinks: []HttpLink{"https://docs.aws.amazon.com/sdkref/latest/guide/standardized-credentials.html"},
	}

	bundleBuildFailedIssue = &Issue{
		id: BundleBuildFailedId,
		mdMsg: `
# The handler could not be bundled

## Things you can try:
- Check that the handler module exists (` + "`.js`, `.mjs`, `.cjs`, `.ts`, `.jsx`, `.tsx`" + `)
- Fix the syntax errors listed in the error message
- Remove unknown names from ` + "`optimize.transform`" + `
- Mark native or runtime-provided modules as external with ` + "`optimize.exclude`",
		extLinks: []HttpLink{"https://esbuild.github.io/api/#external"},
	}

	minificationFailedIssue = &Issue{
		id: MinificationFailedId,
		mdMsg: `
# The bundle could not be minified

The unminified bundle is kept as ` + "`bundled.js`" + ` in the build directory.

## Things you can try:
- Inspect ` + "`bundled.js`" + ` for constructs the minifier rejects
- Disable ` + "`optimize.minify`" + ` to ship the unminified bundle`,
	}

	includePathNotFoundIssue = &Issue{
		id: IncludePathNotFoundId,
		mdMsg: `
# An include path does not exist

Paths in ` + "`optimize.includePaths`" + ` are relative to the project root and are added to
the archive next to the bundle.

## Things you can try:
- Check the spelling and case of the path
- Make sure ` + "`package.excludePatterns`" + ` does not drop the path from the build directory`,
	}

	archiveTooLargeIssue = &Issue{
		id: ArchiveTooLargeId,
		mdMsg: `
# The archive exceeds the upload limit

Direct uploads of function code must be smaller than 50 MiB.

## Things you can try:
- Add ` + "`package.excludePatterns`" + ` for tests, docs and build output
- Bundle the handler (` + "`optimize.builder: \"esbuild\"`" + `) so only the reachable code ships
- Enable ` + "`optimize.minify`" + `
- Mark the AWS SDK as external: ` + "`optimize.exclude: [\"aws-sdk\"]`",
		extLinks: []HttpLink{"https://docs.aws.amazon.com/lambda/latest/dg/gettingstarted-limits.html"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# The fnpack configuration could not be loaded

## Things you can try:
- Print the effective configuration:
~~~
$ fnpack config show
~~~
- Write a fresh default file and edit it:
~~~
$ fnpack config init
~~~`,
	}

	issues = map[Id]*Issue{
		descriptorUnreadableIssue.Id():         descriptorUnreadableIssue,
		missingDeploymentMetadataIssue.Id():    missingDeploymentMetadataIssue,
		incompleteDeploymentMetadataIssue.Id(): incompleteDeploymentMetadataIssue,
		invalidFunctionNameIssue.Id():          invalidFunctionNameIssue,
		unsupportedBuilderIssue.Id():           unsupportedBuilderIssue,
		invalidExcludePatternIssue.Id():        invalidExcludePatternIssue,
		projectCopyFailedIssue.Id():            projectCopyFailedIssue,
		environmentFetchFailedIssue.Id():       environmentFetchFailedIssue,
		bundleBuildFailedIssue.Id():            bundleBuildFailedIssue,
		minificationFailedIssue.Id():           minificationFailedIssue,
		includePathNotFoundIssue.Id():          includePathNotFoundIssue,
		archiveTooLargeIssue.Id():              archiveTooLargeIssue,
		configLoadFailedIssue.Id():             configLoadFailedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
