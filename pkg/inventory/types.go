// Package inventory defines the provider-neutral asset record produced by
// discovery and consumed by reconciliation.
package inventory

import "github.com/DrSkyle/snipesync/pkg/fieldmap"

// Sentinel values written when a source attribute is missing.
const (
	NotApplicable    = "N/A"
	Unknown          = "unknown"
	DefaultPlatform  = "Linux/UNIX"
	NoDescription    = "No description"
	DefaultCriticity = "Medium"
	Unassigned       = "Unassigned"
)

// Account describes one AWS account to scan.
type Account struct {
	Name          string `mapstructure:"name" json:"name"`
	Profile       string `mapstructure:"profile" json:"profile"`
	DefaultRegion string `mapstructure:"default_region" json:"default_region"`
}

// Defaults are the registry ids stamped on every asset.
type Defaults struct {
	CategoryID int `mapstructure:"category_id" json:"category_id"`
	ModelID    int `mapstructure:"model_id" json:"model_id"`
	StatusID   int `mapstructure:"status_id" json:"status_id"`
}

// Extension is a custom attribute. FieldID and Column are zero when the
// key has no registry field.
type Extension struct {
	Key     fieldmap.Key `json:"key"`
	FieldID int          `json:"field_id,omitempty"`
	Column  string       `json:"column,omitempty"`
	Value   string       `json:"value"`
}

// Asset is the normalized record for one instance.
type Asset struct {
	AssetTag     string      `json:"asset_tag"`
	Serial       string      `json:"serial"`
	Name         string      `json:"name"`
	StatusID     int         `json:"status_id"`
	ModelID      int         `json:"model_id"`
	PurchaseDate string      `json:"purchase_date,omitempty"`
	Notes        string      `json:"notes"`
	Extensions   []Extension `json:"extensions"`
}

// Extension returns the value stored for a key.
func (a Asset) Extension(k fieldmap.Key) (string, bool) {
	for _, e := range a.Extensions {
		if e.Key == k {
			return e.Value, true
		}
	}
	return "", false
}

// DiscoveredAsset is an asset plus where it was found.
type DiscoveredAsset struct {
	Asset   Asset  `json:"asset"`
	Account string `json:"account"`
	Region  string `json:"region"`
}

// AssetTag is the join key against the registry.
func (d DiscoveredAsset) AssetTag() string { return d.Asset.AssetTag }
