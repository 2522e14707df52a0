package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// MaxListedLabels bounds how many node labels a modification prompt names
const MaxListedLabels = 10

type document struct {
	Format       string   `yaml:"format"`
	Example      string   `yaml:"example"`
	Closing      string   `yaml:"closing"`
	Generation   string   `yaml:"generation"`
	Modification string   `yaml:"modification"`
	Manual       string   `yaml:"manual"`
	Examples     []string `yaml:"examples"`
	Requirements []string `yaml:"requirements"`
}

// Catalog holds the parsed prompt templates
type Catalog struct {
	doc            document
	generation     *template.Template
	modification   *template.Template
	manual         *template.Template
	allowedImports []string
}

// GraphSummary is what a modification prompt is told about the current graph
type GraphSummary struct {
	NodeCount int
	EdgeCount int
	Labels    []string
}

// ManualTemplate is the payload of the template endpoint and MCP tool
type ManualTemplate struct {
	Template       string   `json:"template"`
	Examples       []string `json:"examples"`
	AllowedImports []string `json:"allowed_imports"`
	Requirements   []string `json:"requirements"`
}

type templateData struct {
	Description string
	Instruction string
	NodeCount   int
	EdgeCount   int
	NodeLabels  string
	Imports     string
	Format      string
	Example     string
	Closing     string
}

// New parses the embedded prompts. allowedImports is quoted back to the
// model so generated code passes validation.
func New(allowedImports []string) (*Catalog, error) {
	return parse(promptsYAML, allowedImports)
}

func parse(data []byte, allowedImports []string) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	c := &Catalog{doc: doc, allowedImports: append([]string(nil), allowedImports...)}

	var err error
	if c.generation, err = template.New("generation").Option("missingkey=error").Parse(doc.Generation); err != nil {
		return nil, fmt.Errorf("failed to parse generation prompt: %w", err)
	}
	if c.modification, err = template.New("modification").Option("missingkey=error").Parse(doc.Modification); err != nil {
		return nil, fmt.Errorf("failed to parse modification prompt: %w", err)
	}
	if c.manual, err = template.New("manual").Option("missingkey=error").Parse(doc.Manual); err != nil {
		return nil, fmt.Errorf("failed to parse manual prompt: %w", err)
	}

	return c, nil
}

// Generation renders the prompt asking for a new graph
func (c *Catalog) Generation(description string) (string, error) {
	data := c.baseData()
	data.Description = strings.TrimSpace(description)
	return render(c.generation, data)
}

// Modification renders the prompt asking to change an existing graph
func (c *Catalog) Modification(instruction string, summary GraphSummary) (string, error) {
	data := c.baseData()
	data.Instruction = strings.TrimSpace(instruction)
	data.NodeCount = summary.NodeCount
	data.EdgeCount = summary.EdgeCount
	data.NodeLabels = listLabels(summary.Labels)
	return render(c.modification, data)
}

// Template returns the instructions for writing graph code by hand
func (c *Catalog) Template() (ManualTemplate, error) {
	text, err := render(c.manual, c.baseData())
	if err != nil {
		return ManualTemplate{}, err
	}
	return ManualTemplate{
		Template:       text,
		Examples:       append([]string(nil), c.doc.Examples...),
		AllowedImports: append([]string(nil), c.allowedImports...),
		Requirements:   append([]string(nil), c.doc.Requirements...),
	}, nil
}

func (c *Catalog) baseData() templateData {
	return templateData{
		Imports: strings.Join(c.allowedImports, ", "),
		Format:  c.doc.Format,
		Example: c.doc.Example,
		Closing: c.doc.Closing,
	}
}

func render(t *template.Template, data templateData) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}

func listLabels(labels []string) string {
	if len(labels) <= MaxListedLabels {
		return strings.Join(labels, ", ")
	}
	return strings.Join(labels[:MaxListedLabels], ", ") + "..."
}
