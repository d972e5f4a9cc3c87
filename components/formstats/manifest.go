package formstats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ManifestVersion is the supported report-template manifest format.
const ManifestVersion = "1"

// TemplateManifest is a YAML document adding or replacing report templates.
// An added template runs as part of the query batches named in its queries
// list; a replacement keeps the batches of the built-in it shadows.
type TemplateManifest struct {
	Version   string             `json:"version" yaml:"version"`
	Templates []ManifestTemplate `json:"templates" yaml:"templates"`
	Source    string             `json:"-" yaml:"-"`
}

// ManifestTemplate is one template entry.
type ManifestTemplate struct {
	Name           string            `json:"name" yaml:"name"`
	Metrics        []string          `json:"metrics" yaml:"metrics"`
	Dimensions     []string          `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Filters        []string          `json:"filters,omitempty" yaml:"filters,omitempty"`
	ClauseOperator *string           `json:"clause_operator,omitempty" yaml:"clause_operator,omitempty"`
	OrderBy        []ManifestOrderBy `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	EndDate        string            `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Queries        []string          `json:"queries,omitempty" yaml:"queries,omitempty"`
}

// ManifestOrderBy sorts a template's rows.
type ManifestOrderBy struct {
	Field string `json:"field" yaml:"field"`
	Order string `json:"order,omitempty" yaml:"order,omitempty"`
}

// ReadManifest loads a manifest file from disk.
func ReadManifest(path string) (*TemplateManifest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("formstats: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("formstats: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads and validates a manifest.
func DecodeManifest(r io.Reader) (*TemplateManifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("formstats: read manifest: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("formstats: manifest is empty")
	}
	if err := validateManifestSchema(data); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var doc TemplateManifest
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("formstats: manifest is empty")
		}
		return nil, fmt.Errorf("formstats: parse manifest: %w", err)
	}
	if doc.Version == "" {
		doc.Version = ManifestVersion
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the rules the schema cannot express.
func (doc *TemplateManifest) Validate() error {
	if doc.Version != ManifestVersion {
		return fmt.Errorf("formstats: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Templates))
	for idx, tpl := range doc.Templates {
		if tpl.Name == "" {
			return fmt.Errorf("formstats: manifest template at index %d is missing name", idx)
		}
		if _, dup := seen[tpl.Name]; dup {
			return fmt.Errorf("formstats: manifest duplicates template %s", tpl.Name)
		}
		seen[tpl.Name] = struct{}{}
		for _, token := range tpl.Filters {
			if !KnownFilterToken(FilterToken(token)) {
				return fmt.Errorf("formstats: template %s uses unknown filter %q", tpl.Name, token)
			}
		}
		for _, query := range tpl.Queries {
			if !slices.Contains(QueryKinds(), QueryKind(query)) {
				return fmt.Errorf("formstats: template %s joins unknown query %q", tpl.Name, query)
			}
		}
		if !IsBuiltinReport(ReportName(tpl.Name)) && len(tpl.Queries) == 0 {
			return fmt.Errorf("formstats: template %s is not built in and names no queries to run in", tpl.Name)
		}
	}
	return nil
}

// ReportTemplates converts the manifest entries.
func (doc *TemplateManifest) ReportTemplates() []ReportTemplate {
	out := make([]ReportTemplate, 0, len(doc.Templates))
	for _, entry := range doc.Templates {
		tpl := ReportTemplate{
			Name:           ReportName(entry.Name),
			Metrics:        append([]string(nil), entry.Metrics...),
			Dimensions:     append([]string(nil), entry.Dimensions...),
			ClauseOperator: ClauseAnd,
			EndDate:        entry.EndDate,
		}
		for _, query := range entry.Queries {
			tpl.Queries = append(tpl.Queries, QueryKind(query))
		}
		if entry.ClauseOperator != nil {
			tpl.ClauseOperator = *entry.ClauseOperator
		}
		for _, token := range entry.Filters {
			tpl.Filters = append(tpl.Filters, FilterToken(token))
		}
		for _, order := range entry.OrderBy {
			sortOrder := order.Order
			if sortOrder == "" {
				sortOrder = SortAscending
			}
			tpl.OrderBys = append(tpl.OrderBys, OrderBy{FieldName: order.Field, SortOrder: sortOrder})
		}
		out = append(out, tpl)
	}
	return out
}

// LoadTemplates reads a manifest and returns a builder seeded with the
// built-in templates plus the manifest ones. An empty path yields the
// built-ins only.
func LoadTemplates(path string) (*QueryBuilder, error) {
	if path == "" {
		return NewQueryBuilder(), nil
	}
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	return NewQueryBuilder(doc.ReportTemplates()...), nil
}
