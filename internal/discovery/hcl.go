package discovery

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/plugstrap/internal/ctxlog"
	"github.com/vk/plugstrap/internal/fsutil"
	"github.com/vk/plugstrap/internal/handlers"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ManifestExtension is the file extension of plugin manifests.
const ManifestExtension = ".hcl"

// HCLSource discovers plugins from HCL manifests under Root:
//
//	plugin "b" {
//	  version    = "1.0.0"
//	  name       = "Plugin B"
//	  depends_on = ["a"]
//	  handler    = "sample.b"
//	  resources  = "assets"
//	}
//
// Each block's handler is instantiated from Handlers. A plugin's resources
// live in the manifest's directory, or in the directory named by resources
// relative to it.
type HCLSource struct {
	Root     string
	Handlers *handlers.Handlers
}

// manifestFile captures every plugin block in a file. Other top-level
// content (metadata files share the directory) is ignored.
type manifestFile struct {
	Plugins []*pluginBlock `hcl:"plugin,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

type pluginBlock struct {
	Domain    string         `hcl:"domain,label"`
	Version   string         `hcl:"version,optional"`
	Name      string         `hcl:"name,optional"`
	DependsOn hcl.Expression `hcl:"depends_on,optional"`
	Handler   string         `hcl:"handler"`
	Resources string         `hcl:"resources,optional"`
}

// evalContext exposes a few string helpers to manifest expressions.
var evalContext = &hcl.EvalContext{
	Functions: map[string]function.Function{
		"lower":  stdlib.LowerFunc,
		"upper":  stdlib.UpperFunc,
		"concat": stdlib.ConcatFunc,
		"format": stdlib.FormatFunc,
	},
}

// Discover parses every manifest under Root. Descriptors come back ordered
// by file path, then by block order within a file. Any parse error or
// unknown handler fails the whole discovery.
func (s *HCLSource) Discover(ctx context.Context) ([]plugin.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)
	if s.Handlers == nil {
		return nil, fmt.Errorf("discovery: no handler table configured")
	}

	files, err := fsutil.FindFilesByExtension(s.Root, ManifestExtension)
	if err != nil {
		return nil, fmt.Errorf("failed to search for plugin manifests in %s: %w", s.Root, err)
	}
	logger.Debug("Discovered manifest files.", "root", s.Root, "count", len(files))

	parser := hclparse.NewParser()
	var descriptors []plugin.Descriptor
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := s.parseFile(parser, file)
		if err != nil {
			return nil, err
		}
		for _, d := range found {
			logger.Debug("Discovered plugin.", "domain", d.Domain, "version", d.Version, "file", file)
		}
		descriptors = append(descriptors, found...)
	}

	logger.Info("Finished discovering plugins.", "plugins", len(descriptors), "files", len(files))
	return descriptors, nil
}

func (s *HCLSource) parseFile(parser *hclparse.Parser, file string) ([]plugin.Descriptor, error) {
	hclFile, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse plugin manifest %s: %w", file, diags)
	}

	var root manifestFile
	if diags := gohcl.DecodeBody(hclFile.Body, evalContext, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode plugin manifest %s: %w", file, diags)
	}

	dir := filepath.Dir(file)
	descriptors := make([]plugin.Descriptor, 0, len(root.Plugins))
	for _, block := range root.Plugins {
		deps, err := decodeStringList(block.DependsOn)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s' in %s: invalid depends_on: %w", block.Domain, file, err)
		}
		handle, err := s.Handlers.New(block.Handler)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s' in %s: %w", block.Domain, file, err)
		}
		descriptors = append(descriptors, plugin.Descriptor{
			Domain:       block.Domain,
			Version:      block.Version,
			Name:         block.Name,
			Dependencies: deps,
			Handle:       handle,
			Source:       file,
			ResourceRoot: resourceRoot(dir, block.Resources),
		})
	}
	return descriptors, nil
}

func resourceRoot(dir, resources string) string {
	if resources == "" {
		return dir
	}
	if filepath.IsAbs(resources) {
		return resources
	}
	return filepath.Join(dir, resources)
}

// decodeStringList evaluates expr as a list of strings. A missing or null
// attribute yields nil.
func decodeStringList(expr hcl.Expression) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalContext)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	listType := cty.List(cty.String)
	val, err := convert.Convert(val, listType)
	if err != nil {
		return nil, fmt.Errorf("expected a list of strings: %w", err)
	}

	var out []string
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return nil, err
	}
	return out, nil
}
