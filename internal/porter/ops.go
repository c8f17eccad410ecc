package porter

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
)

// opsDoc models the scene-description XML: a root holding MapObjects
// elements, each holding AssetObject elements whose asset attribute
// names a package. Normally there is exactly one MapObjects per file;
// multiples are handled anyway.
type opsDoc struct {
	MapObjects []struct {
		AssetObjects []struct {
			Asset string `xml:"asset,attr"`
		} `xml:"AssetObject"`
	} `xml:"MapObjects"`
}

// CollectAssets returns the distinct asset names referenced by all
// AssetObject elements across all given .ops files, sorted.
func CollectAssets(opsFiles []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, path := range opsFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read ops file %s: %w", path, err)
		}
		var doc opsDoc
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse ops file %s: %w", path, err)
		}
		for _, mo := range doc.MapObjects {
			for _, ao := range mo.AssetObjects {
				if ao.Asset != "" {
					seen[ao.Asset] = true
				}
			}
		}
	}

	assets := make([]string, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets, nil
}
