package compliance

import (
	"fmt"
	"sort"
	"strings"
)

const mib = 1024 * 1024

// Platform is one marketplace's published technical image specification.
// Adding a marketplace means adding a row to the table, not changing logic.
type Platform struct {
	Name             string  `json:"name" toml:"name"`
	DisplayName      string  `json:"displayName" toml:"display_name"`
	MinResolution    int     `json:"minResolution" toml:"min_resolution"`
	AspectWidth      int     `json:"aspectWidth" toml:"aspect_width"`
	AspectHeight     int     `json:"aspectHeight" toml:"aspect_height"`
	MaxFileSizeBytes int     `json:"maxFileSizeBytes" toml:"max_file_size_bytes"`
	MaxPhotos        int     `json:"maxPhotos" toml:"max_photos"`
	PreferredFormat  string  `json:"preferredFormat" toml:"preferred_format"`
	MinAcceptRatio   float64 `json:"minAcceptRatio" toml:"min_accept_ratio"`
	MaxAcceptRatio   float64 `json:"maxAcceptRatio" toml:"max_accept_ratio"`
}

// AspectRatio returns the preferred width/height ratio
func (p Platform) AspectRatio() float64 {
	return float64(p.AspectWidth) / float64(p.AspectHeight)
}

// AspectLabel returns the ratio in "W:H" form
func (p Platform) AspectLabel() string {
	return fmt.Sprintf("%d:%d", p.AspectWidth, p.AspectHeight)
}

// MaxFileSizeLabel returns the file size ceiling in human form
func (p Platform) MaxFileSizeLabel() string {
	return formatSize(p.MaxFileSizeBytes)
}

// DefaultPlatform is used when no platform is named
const DefaultPlatform = "etsy"

var platforms = map[string]Platform{
	"etsy": {
		Name:             "etsy",
		DisplayName:      "Etsy",
		MinResolution:    2000,
		AspectWidth:      4,
		AspectHeight:     3,
		MaxFileSizeBytes: 1 * mib,
		MaxPhotos:        10,
		PreferredFormat:  "jpeg",
		MinAcceptRatio:   0.67,
		MaxAcceptRatio:   1.5,
	},
	"shopify": {
		Name:             "shopify",
		DisplayName:      "Shopify",
		MinResolution:    2048,
		AspectWidth:      1,
		AspectHeight:     1,
		MaxFileSizeBytes: 20 * mib,
		MaxPhotos:        10,
		PreferredFormat:  "jpeg",
		MinAcceptRatio:   0.67,
		MaxAcceptRatio:   1.5,
	},
	"ebay": {
		Name:             "ebay",
		DisplayName:      "eBay",
		MinResolution:    1600,
		AspectWidth:      1,
		AspectHeight:     1,
		MaxFileSizeBytes: 12 * mib,
		MaxPhotos:        12,
		PreferredFormat:  "jpeg",
		MinAcceptRatio:   0.67,
		MaxAcceptRatio:   1.5,
	},
}

// Lookup returns the platform row for a name. An empty name selects the default.
func Lookup(name string) (Platform, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultPlatform
	}
	p, ok := platforms[key]
	if !ok {
		return Platform{}, fmt.Errorf("unknown platform %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// MustLookup is Lookup for names known at compile time
func MustLookup(name string) Platform {
	p, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Names returns the supported platform names in sorted order
func Names() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatSize(n int) string {
	switch {
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%dMB", n/mib)
	case n >= mib:
		return fmt.Sprintf("%.1fMB", float64(n)/mib)
	case n >= 1024:
		return fmt.Sprintf("%dKB", n/1024)
	}
	return fmt.Sprintf("%dB", n)
}
