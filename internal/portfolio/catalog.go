package portfolio

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.schema.json
var catalogSchemaJSON []byte

const catalogSchemaURL = "catalog.schema.json"

var catalogSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(catalogSchemaURL, bytes.NewReader(catalogSchemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile(catalogSchemaURL)
}()

// LoadCatalog reads the catalog file at path.
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog, checks its shape and resolves entries
// given as URLs into owner and name.
func ParseCatalog(data []byte) (*Catalog, error) {
	if err := validateCatalog(data); err != nil {
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	for i, e := range cat.Projects {
		if e.Owner != "" && e.Name != "" {
			continue
		}
		owner, name, err := ExtractGitHubRepoFromURL(e.URL)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		cat.Projects[i].Owner, cat.Projects[i].Name = owner, name
	}
	return &cat, nil
}

// validateCatalog runs the schema against the document. YAML scalars are
// round-tripped through JSON so numbers and maps take the shapes the
// validator expects.
func validateCatalog(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode catalog: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to decode catalog: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := catalogSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	return nil
}

// ExtractGitHubRepoFromURL extracts owner and repo name from a GitHub URL
func ExtractGitHubRepoFromURL(repoURL string) (owner, repo string, err error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %v", err)
	}

	if parsedURL.Host != "github.com" && parsedURL.Host != "www.github.com" {
		return "", "", fmt.Errorf("not a GitHub URL: %s", repoURL)
	}

	parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub URL format: %s", repoURL)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
