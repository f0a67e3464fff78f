// Package metadata loads the optional descriptive files (meta.json, meta.hcl
// or meta.yaml) that ship alongside plugins and attaches them to registered
// records.
package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/plugstrap/internal/ctxlog"
	"github.com/vk/plugstrap/internal/fsutil"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"
)

// File names recognized as metadata.
const (
	JSONFileName = "meta.json"
	HCLFileName  = "meta.hcl"
	YAMLFileName = "meta.yaml"
)

// Entry is one parsed metadata file.
type Entry struct {
	// Domain is the normalized domain the metadata belongs to.
	Domain   string
	Metadata plugin.Metadata
	Source   string
}

// Load finds and parses every metadata file under root. Files are handled
// best-effort: one without a domain is skipped, and one that fails to parse
// is logged and skipped. Only failing to search root is an error.
func Load(ctx context.Context, root string) ([]Entry, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Fetching plugin metadata...")
	start := time.Now()

	files, err := fsutil.FindFilesByName(root, JSONFileName, HCLFileName, YAMLFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to search for plugin metadata in %s: %w", root, err)
	}

	parser := hclparse.NewParser()
	var entries []Entry
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, ok, err := parseFile(parser, file)
		if err != nil {
			logger.Warn("Failed to read plugin metadata, skipping.", "file", file, "error", err)
			continue
		}
		if !ok {
			logger.Debug("Metadata file has no domain, skipping.", "file", file)
			continue
		}
		logger.Debug("Found plugin metadata.", "domain", entry.Domain, "file", file)
		entries = append(entries, entry)
	}

	logger.Info("Finished fetching all plugin metadata.", "files", len(files), "entries", len(entries), "duration", time.Since(start))
	return entries, nil
}

// Apply attaches each entry to the registered plugin with the same domain
// and returns how many were attached. Entries for unknown domains are
// ignored.
func Apply(ctx context.Context, reg *registry.Registry, entries []Entry) int {
	logger := ctxlog.FromContext(ctx)
	attached := 0
	for _, e := range entries {
		md := e.Metadata
		if !reg.AttachMetadata(e.Domain, &md) {
			logger.Debug("No plugin registered for metadata, ignoring.", "domain", e.Domain, "file", e.Source)
			continue
		}
		attached++
	}
	return attached
}

func parseFile(parser *hclparse.Parser, file string) (Entry, bool, error) {
	if strings.EqualFold(filepath.Ext(file), ".yaml") {
		return parseYAML(file)
	}

	var (
		f     *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(file), ".json") {
		f, diags = parser.ParseJSONFile(file)
	} else {
		f, diags = parser.ParseHCLFile(file)
	}
	if diags.HasErrors() {
		return Entry{}, false, diags
	}

	attrs, diags := f.Body.JustAttributes()
	if diags.HasErrors() {
		return Entry{}, false, diags
	}

	r := attrReader{attrs: attrs}
	domain := plugin.NormalizeDomain(r.str("domain"))
	if domain == "" {
		return Entry{}, false, r.err
	}

	entry := Entry{
		Domain: domain,
		Source: file,
		Metadata: plugin.Metadata{
			Name:         r.str("name"),
			Version:      r.str("version"),
			Authors:      r.list("authors"),
			Description:  r.str("description"),
			WebsiteURL:   r.str("websiteURL"),
			LogoURL:      r.str("logoURL"),
			Credits:      r.str("credits"),
			Dependencies: r.list("dependencies"),
		},
	}
	if r.err != nil {
		return Entry{}, false, r.err
	}
	return entry, true, nil
}

// attrReader reads optional attributes, treating absent and null values as
// empty and keeping the first conversion error.
type attrReader struct {
	attrs hcl.Attributes
	err   error
}

func (r *attrReader) value(name string) (cty.Value, bool) {
	attr, ok := r.attrs[name]
	if !ok || r.err != nil {
		return cty.NilVal, false
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		r.err = diags
		return cty.NilVal, false
	}
	if val.IsNull() || !val.IsWhollyKnown() {
		return cty.NilVal, false
	}
	return val, true
}

func (r *attrReader) str(name string) string {
	val, ok := r.value(name)
	if !ok {
		return ""
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		r.err = fmt.Errorf("attribute %q: %w", name, err)
		return ""
	}
	return val.AsString()
}

func (r *attrReader) list(name string) []string {
	val, ok := r.value(name)
	if !ok {
		return nil
	}
	val, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		r.err = fmt.Errorf("attribute %q: %w", name, err)
		return nil
	}
	var out []string
	if err := gocty.FromCtyValue(val, &out); err != nil {
		r.err = fmt.Errorf("attribute %q: %w", name, err)
		return nil
	}
	return out
}

// yamlFile mirrors the JSON layout; YAML has no expression language, so it
// is decoded directly.
type yamlFile struct {
	Domain       string   `yaml:"domain"`
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Authors      []string `yaml:"authors"`
	Description  string   `yaml:"description"`
	WebsiteURL   string   `yaml:"websiteURL"`
	LogoURL      string   `yaml:"logoURL"`
	Credits      string   `yaml:"credits"`
	Dependencies []string `yaml:"dependencies"`
}

func parseYAML(file string) (Entry, bool, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Entry{}, false, err
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Entry{}, false, err
	}

	domain := plugin.NormalizeDomain(f.Domain)
	if domain == "" {
		return Entry{}, false, nil
	}
	return Entry{
		Domain: domain,
		Source: file,
		Metadata: plugin.Metadata{
			Name:         f.Name,
			Version:      f.Version,
			Authors:      f.Authors,
			Description:  f.Description,
			WebsiteURL:   f.WebsiteURL,
			LogoURL:      f.LogoURL,
			Credits:      f.Credits,
			Dependencies: f.Dependencies,
		},
	}, true, nil
}
