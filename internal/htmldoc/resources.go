package htmldoc

import "strings"

// ResourceKind classifies an external reference.
type ResourceKind string

const (
	ResourceScript     ResourceKind = "script"
	ResourceStylesheet ResourceKind = "stylesheet"
	ResourceIcon       ResourceKind = "icon"
	ResourceImage      ResourceKind = "image"
	ResourcePreload    ResourceKind = "preload"
)

// Resource is a URL referenced from a page.
type Resource struct {
	Kind ResourceKind
	URL  string
	Tag  Tag
}

// Line is the source line of the referencing tag.
func (r Resource) Line() int {
	return r.Tag.Line
}

// Resources returns every script, stylesheet, icon, preload and image
// reference in source order. Commented-out markup is not included.
func (d *Document) Resources() []Resource {
	var out []Resource
	for _, t := range d.Tags {
		switch t.Name {
		case "script":
			if src, ok := t.Attrs["src"]; ok && strings.TrimSpace(src) != "" {
				out = append(out, Resource{Kind: ResourceScript, URL: strings.TrimSpace(src), Tag: t})
			}
		case "link":
			href := strings.TrimSpace(t.Attrs["href"])
			if href == "" {
				continue
			}
			if kind, ok := linkKind(t.Attrs["rel"]); ok {
				out = append(out, Resource{Kind: kind, URL: href, Tag: t})
			}
		case "img":
			if src := strings.TrimSpace(t.Attrs["src"]); src != "" {
				out = append(out, Resource{Kind: ResourceImage, URL: src, Tag: t})
			}
		}
	}
	return out
}

// ResourcesOf returns resources of the given kinds.
func (d *Document) ResourcesOf(kinds ...ResourceKind) []Resource {
	want := make(map[ResourceKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Resource
	for _, r := range d.Resources() {
		if want[r.Kind] {
			out = append(out, r)
		}
	}
	return out
}

func linkKind(rel string) (ResourceKind, bool) {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		switch token {
		case "stylesheet":
			return ResourceStylesheet, true
		case "icon", "apple-touch-icon", "mask-icon":
			return ResourceIcon, true
		case "preload", "modulepreload":
			return ResourcePreload, true
		}
	}
	return "", false
}
