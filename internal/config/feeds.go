package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"transparencia/internal/util"
)

//go:embed feeds.yaml
var defaultFeeds []byte

type Catalog struct {
	Tables  []TableFeed `yaml:"tables"`
	Payroll struct {
		Departments []Department `yaml:"departments"`
	} `yaml:"payroll"`
}

type TableFeed struct {
	Name          string   `yaml:"name"`
	Tab           string   `yaml:"tab"`
	URL           string   `yaml:"url"`
	DatasetURL    string   `yaml:"dataset_url"`
	ResourceMatch string   `yaml:"resource_match"`
	Encoding      string   `yaml:"encoding"`
	Optional      bool     `yaml:"optional"`
	Filters       []Filter `yaml:"filters"`
}

type Filter struct {
	Column   string `yaml:"column"`
	Equals   string `yaml:"equals"`
	Contains string `yaml:"contains"`
}

type Department struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Tab  string `yaml:"tab"`
}

// Enabled is false for optional feeds whose source was left unconfigured.
func (f TableFeed) Enabled() bool {
	return strings.TrimSpace(f.URL) != "" || strings.TrimSpace(f.DatasetURL) != ""
}

// SourceURL fills the {mes}/{ano} placeholders of the direct download url.
func (f TableFeed) SourceURL(month, year int) string {
	repl := strings.NewReplacer(
		"{mes}", fmt.Sprintf("%02d", month),
		"{ano}", strconv.Itoa(year),
	)
	return repl.Replace(f.URL)
}

// LoadCatalog reads the feed catalog from path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	blob := defaultFeeds
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read feeds %s: %w", path, err)
		}
		blob = b
	}
	return ParseCatalog(blob)
}

func ParseCatalog(blob []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(blob))), &c); err != nil {
		return nil, fmt.Errorf("config: parse feeds: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Table(name string) (TableFeed, bool) {
	for _, t := range c.Tables {
		if util.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return TableFeed{}, false
}

func (c *Catalog) Department(id string) (Department, bool) {
	for _, d := range c.Payroll.Departments {
		if d.ID == id || util.EqualFold(d.Name, id) {
			return d, true
		}
	}
	return Department{}, false
}

func (c *Catalog) validate() error {
	tabs := map[string]struct{}{}
	claimTab := func(owner, tab string) error {
		if strings.TrimSpace(tab) == "" {
			return fmt.Errorf("config: %s: tab must be set", owner)
		}
		if _, dup := tabs[tab]; dup {
			return fmt.Errorf("config: %s: tab %q already used", owner, tab)
		}
		tabs[tab] = struct{}{}
		return nil
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("config: tables[%d].name must be set", i)
		}
		owner := "table " + t.Name
		if err := claimTab(owner, t.Tab); err != nil {
			return err
		}
		if !t.Enabled() && !t.Optional {
			return fmt.Errorf("config: %s: url or dataset_url must be set", owner)
		}
		if t.Encoding == "" {
			t.Encoding = "latin1"
		}
		if t.Encoding != "latin1" && t.Encoding != "utf8" {
			return fmt.Errorf("config: %s: unsupported encoding %q", owner, t.Encoding)
		}
		for j, f := range t.Filters {
			if strings.TrimSpace(f.Column) == "" {
				return fmt.Errorf("config: %s: filters[%d].column must be set", owner, j)
			}
			if (f.Equals == "") == (f.Contains == "") {
				return fmt.Errorf("config: %s: filters[%d] needs exactly one of equals/contains", owner, j)
			}
		}
	}

	for i, d := range c.Payroll.Departments {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("config: payroll.departments[%d].id must be set", i)
		}
		if err := claimTab("department "+d.ID, d.Tab); err != nil {
			return err
		}
	}
	return nil
}
