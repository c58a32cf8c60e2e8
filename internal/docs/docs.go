// Package docs embeds the user documentation behind `expertedit docs`, so
// the pages ship inside the binary and read fine offline.
package docs

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed content/*.md
var pages embed.FS

// Topic is one embedded documentation page.
type Topic struct {
	// Name is what `expertedit docs <name>` takes.
	Name string `json:"name"`
	// Title is the page's first heading.
	Title string `json:"title"`
}

// List returns every embedded topic, sorted by name.
func List() []Topic {
	entries, err := fs.ReadDir(pages, "content")
	if err != nil {
		return nil
	}
	topics := make([]Topic, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".md")
		if name == e.Name() || name == "" {
			continue
		}
		body, ok := Read(name)
		if !ok {
			continue
		}
		topics = append(topics, Topic{Name: name, Title: firstHeading(body)})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics
}

// Read returns the raw markdown of one topic.
func Read(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.ContainsAny(name, "/\\.") {
		return "", false
	}
	b, err := pages.ReadFile("content/" + name + ".md")
	if err != nil {
		return "", false
	}
	return string(b), true
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "#") {
			continue
		}
		if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
			return t
		}
	}
	return ""
}
