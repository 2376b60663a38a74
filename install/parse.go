package install

import (
	"sort"
	"strings"

	"github.com/evergreen-ci/cloak/model/dependency"
)

const versionSettingSuffix = ".version"

// Item is one entry of an install request. An empty Version means none
// was requested.
type Item struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

func (i Item) String() string {
	if i.Version == "" {
		return i.Name
	}
	return i.Name + ":" + i.Version
}

// Request is a parsed list of dependencies, in install order, and the
// settings addressed to their recipes.
type Request struct {
	Items    []Item
	Settings map[string]string
}

// ParseRequest parses "name", "name:version" and "name.key=value" tokens.
// A "name.version=V" token sets the version of the first versionless item
// named name, wherever that item appears in the list.
func ParseRequest(tokens []string) (*Request, error) {
	req := &Request{Items: []Item{}, Settings: map[string]string{}}
	versions := []Item{}

	for _, token := range tokens {
		if key, value, ok := splitSetting(token); ok {
			if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
				return nil, installErrorf("", "malformed setting '%s'", token)
			}
			if strings.HasSuffix(key, versionSettingSuffix) {
				name, _, _ := strings.Cut(key, ".")
				versions = append(versions, Item{Name: strings.TrimSpace(name), Version: value})
				continue
			}
			req.Settings[key] = value
			continue
		}

		ref, err := dependency.ParseRef(token)
		if err != nil {
			return nil, newInstallError("", err)
		}
		req.Items = append(req.Items, Item{Name: ref.Name, Version: ref.Version})
	}

	for _, v := range versions {
		for i := range req.Items {
			if req.Items[i].Name == v.Name && req.Items[i].Version == "" {
				req.Items[i].Version = v.Version
				break
			}
		}
	}

	return req, nil
}

// splitSetting returns the trimmed key and value of a settings token: one
// whose part before the first '=' contains a '.' and no ':'.
func splitSetting(token string) (string, string, bool) {
	key, value, found := strings.Cut(token, "=")
	if !found || !strings.Contains(key, ".") || strings.Contains(key, ":") {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

// Validate checks that every requested dependency is registered. All
// unknown names are reported together.
func (r *Request) Validate(reg *dependency.Registry) error {
	unknown := map[string]bool{}
	for _, item := range r.Items {
		if _, ok := reg.Get(item.Name); !ok {
			unknown[item.Name] = true
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	names := make([]string, 0, len(unknown))
	for name := range unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	return installErrorf("", "one or more dependencies are unknown: %s", strings.Join(names, ", "))
}

// RecommendedItems returns the recipe of osVersion if recipes has one, and
// otherwise every dependency flagged recommended at its default version.
func RecommendedItems(reg *dependency.Registry, recipes map[string][]string, osVersion string) ([]Item, error) {
	items := []Item{}
	if recipe, ok := recipes[osVersion]; ok {
		for _, token := range recipe {
			ref, err := dependency.ParseRef(token)
			if err != nil {
				return nil, newInstallError("", err)
			}
			items = append(items, Item{Name: ref.Name, Version: ref.Version})
		}
		return items, nil
	}

	for _, d := range reg.Recommended() {
		items = append(items, Item{Name: d.Name, Version: d.DefaultVersion})
	}
	if len(items) == 0 {
		return nil, installErrorf("", "no recommended software or settings available for '%s'", osVersion)
	}
	return items, nil
}
