package snipeit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/DrSkyle/snipesync/pkg/fieldmap"
)

// StatusSuccess is the envelope status of an accepted write.
const StatusSuccess = "success"

// Messages is the envelope "messages" member. The registry sends either a
// plain string or an object of field name to a list of errors.
type Messages map[string][]string

// UnmarshalJSON accepts a string, a list of strings, or an object whose values
// are strings or lists of strings.
func (m *Messages) UnmarshalJSON(data []byte) error {
	out := Messages{}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*m = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			out["general"] = []string{s}
		}
		*m = out
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) > 0 {
			out["general"] = list
		}
		*m = out
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unsupported messages shape: %s", trimmed)
	}
	for k, raw := range obj {
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			out[k] = []string{one}
			continue
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			out[k] = many
			continue
		}
		out[k] = []string{string(raw)}
	}
	*m = out
	return nil
}

// String renders messages deterministically, e.g. "asset_tag: taken; name: required".
func (m Messages) String() string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		joined := strings.Join(m[k], ", ")
		if k == "general" {
			parts = append(parts, joined)
			continue
		}
		parts = append(parts, k+": "+joined)
	}
	return strings.Join(parts, "; ")
}

// envelope wraps write responses.
type envelope struct {
	Status   string          `json:"status"`
	Messages Messages        `json:"messages"`
	Payload  json.RawMessage `json:"payload"`
}

// Page is a listing response.
type Page[T any] struct {
	Total int `json:"total"`
	Rows  []T `json:"rows"`
}

// Ref is a nested {id, name} object.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Hardware is a registry asset row.
type Hardware struct {
	ID          int    `json:"id"`
	AssetTag    string `json:"asset_tag"`
	Name        string `json:"name"`
	Serial      string `json:"serial"`
	Model       *Ref   `json:"model"`
	StatusLabel *Ref   `json:"status_label"`
}

// Entity is any named registry object (category, manufacturer, model).
type Entity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Category is the create body for /categories.
type Category struct {
	Name         string `json:"name"`
	CategoryType string `json:"category_type"`
	EULA         bool   `json:"eula"`
}

// Manufacturer is the create body for /manufacturers.
type Manufacturer struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Model is the create body for /models.
type Model struct {
	Name           string `json:"name"`
	ManufacturerID int    `json:"manufacturer_id"`
	CategoryID     int    `json:"category_id"`
	ModelNumber    string `json:"model_number,omitempty"`
}

// FieldRequest is the create body for /fields.
type FieldRequest struct {
	Name           string `json:"name"`
	Element        string `json:"element"`
	Format         string `json:"format"`
	CustomFormat   string `json:"custom_format"`
	FieldEncrypted bool   `json:"field_encrypted"`
	ShowInListView bool   `json:"show_in_listview"`
}

// Field is a custom field definition as returned by the registry.
type Field struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DBColumnName string `json:"db_column_name"`
	DBColumn     string `json:"db_column"`
}

// Column returns the storage column, deriving it when the registry omits it.
func (f Field) Column() string {
	switch {
	case f.DBColumnName != "":
		return f.DBColumnName
	case f.DBColumn != "":
		return f.DBColumn
	default:
		return fieldmap.ColumnName(f.Name, f.ID)
	}
}

// AssetQuery filters the hardware listing. Zero values are omitted.
type AssetQuery struct {
	Search   string
	AssetTag string
	StatusID int
	Limit    int
	Offset   int
}
