// Package replytext holds the user-visible bot replies. Each entry is a
// text/template rendered with Data; a YAML file may override any entry.
package replytext

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultSource []byte

type Key string

const (
	Greeting        Key = "greeting"
	GreetingButton  Key = "greeting_button"
	ButtonClicked   Key = "button_clicked"
	NoFile          Key = "no_file"
	UnsupportedType Key = "unsupported_type"
	DownloadFailed  Key = "download_failed"
	SaveFailed      Key = "save_failed"
	Saved           Key = "saved"
)

var allKeys = []Key{Greeting, GreetingButton, ButtonClicked, NoFile, UnsupportedType, DownloadFailed, SaveFailed, Saved}

// Data is the template input. Fields that a reply does not use are ignored.
type Data struct {
	User string
	Path string
}

type Catalog struct {
	templates map[Key]*template.Template
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := parse(defaultSource, nil)
	if err != nil {
		panic(fmt.Sprintf("replytext: invalid default catalog: %v", err))
	}
	return c
}

// Load reads a YAML override file on top of the built-in catalog. An empty
// path returns the defaults.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	base := Default()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reply catalog: %w", err)
	}
	return parse(raw, base)
}

func parse(raw []byte, base *Catalog) (*Catalog, error) {
	entries := map[string]string{}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse reply catalog: %w", err)
	}
	out := &Catalog{templates: make(map[Key]*template.Template, len(allKeys))}
	if base != nil {
		for k, t := range base.templates {
			out.templates[k] = t
		}
	}
	known := make(map[Key]bool, len(allKeys))
	for _, k := range allKeys {
		known[k] = true
	}
	for name, source := range entries {
		key := Key(strings.TrimSpace(name))
		if !known[key] {
			return nil, fmt.Errorf("unknown reply key %q", name)
		}
		t, err := template.New(string(key)).Option("missingkey=error").Parse(source)
		if err != nil {
			return nil, fmt.Errorf("reply %q: %w", key, err)
		}
		out.templates[key] = t
	}
	for _, k := range allKeys {
		if out.templates[k] == nil {
			return nil, fmt.Errorf("reply %q is missing", k)
		}
	}
	return out, nil
}

// Render renders key with data. Unknown keys render as the key itself.
func (c *Catalog) Render(key Key, data Data) string {
	if c == nil {
		c = Default()
	}
	t := c.templates[key]
	if t == nil {
		return string(key)
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return string(key)
	}
	return b.String()
}
