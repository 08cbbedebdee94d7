// Package prompts carries the model prompt templates for the research
// pipeline. Each pipeline stage owns one embedded JSON file mapping prompt
// keys to templates with {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed identify.json knowledge.json research.json synthesis.json
var templateFiles embed.FS

var (
	loadOnce  sync.Once
	templates map[string]map[string]string
	loadErr   error
)

// Render returns the template stored under file/key with every {{.Name}}
// placeholder replaced by its value from data. Placeholders without a value
// are left in place so a missing field stays visible in the outgoing prompt.
func Render(file, key string, data map[string]string) (string, error) {
	tmpl, err := lookup(file, key)
	if err != nil {
		return "", err
	}
	for name, value := range data {
		tmpl = strings.ReplaceAll(tmpl, "{{."+name+"}}", value)
	}
	return tmpl, nil
}

func lookup(file, key string) (string, error) {
	loadOnce.Do(loadAll)
	if loadErr != nil {
		return "", loadErr
	}

	keys, ok := templates[file]
	if !ok {
		return "", fmt.Errorf("unknown prompt file %s", file)
	}
	tmpl, ok := keys[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, file)
	}
	return tmpl, nil
}

// loadAll parses every embedded file once. The set is fixed at compile time,
// so a parse failure here is a build defect, reported on first use.
func loadAll() {
	entries, err := templateFiles.ReadDir(".")
	if err != nil {
		loadErr = fmt.Errorf("failed to list prompt files: %w", err)
		return
	}

	templates = make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		raw, err := templateFiles.ReadFile(entry.Name())
		if err != nil {
			loadErr = fmt.Errorf("failed to read prompt file %s: %w", entry.Name(), err)
			return
		}
		var keys map[string]string
		if err := json.Unmarshal(raw, &keys); err != nil {
			loadErr = fmt.Errorf("failed to parse prompt file %s: %w", entry.Name(), err)
			return
		}
		templates[entry.Name()] = keys
	}
}
