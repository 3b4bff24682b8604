// Package fieldmap holds the table that ties semantic instance attributes to
// Snipe-IT custom field ids. Discovery uses it to label extension attributes
// and provisioning uses it to print the ids an operator pastes into config.
package fieldmap

import (
	"fmt"
	"sort"
	"strings"
)

// Key is a semantic attribute name, e.g. "private_ip".
type Key string

const (
	InstanceType       Key = "instance_type"
	Description        Key = "description"
	PrivateIP          Key = "private_ip"
	PublicIP           Key = "public_ip"
	Platform           Key = "platform"
	VpcID              Key = "vpc_id"
	DNSName            Key = "dns_name"
	MACAddress         Key = "mac_address"
	VendorSupportEnd   Key = "vendor_support_end"
	Criticity          Key = "criticity"
	AssetOwner         Key = "asset_owner"
	Region             Key = "aws_region"
	Account            Key = "aws_account"
	AvailabilityZone   Key = "availability_zone"
	SubnetID           Key = "subnet_id"
	SecurityGroups     Key = "security_groups"
	InstanceState      Key = "instance_state"
	LaunchTime         Key = "launch_time"
	AmiID              Key = "ami_id"
	Architecture       Key = "architecture"
	RootDeviceType     Key = "root_device_type"
	VirtualizationType Key = "virtualization_type"
)

// Definition describes a registry custom field.
type Definition struct {
	Key     Key
	Name    string
	Element string // "text" or "textarea"
	Format  string // "ANY", "IP", "MAC"
}

// Definitions lists every custom field in the order they are created and
// emitted. The first five are shown in the registry list view.
var Definitions = []Definition{
	{InstanceType, "Instance Type", "text", "ANY"},
	{Description, "Description", "textarea", "ANY"},
	{PrivateIP, "Private IP Address", "text", "IP"},
	{PublicIP, "Public IP Address", "text", "IP"},
	{Platform, "Platform", "text", "ANY"},
	{VpcID, "VPC ID", "text", "ANY"},
	{DNSName, "DNS Name", "text", "ANY"},
	{MACAddress, "MAC Address", "text", "MAC"},
	{VendorSupportEnd, "Vendor Support End Date", "text", "ANY"},
	{Criticity, "Criticality", "text", "ANY"},
	{AssetOwner, "Asset Owner", "text", "ANY"},
	{Region, "AWS Region", "text", "ANY"},
	{Account, "AWS Account", "text", "ANY"},
	{AvailabilityZone, "Availability Zone", "text", "ANY"},
	{SubnetID, "Subnet ID", "text", "ANY"},
	{SecurityGroups, "Security Groups", "textarea", "ANY"},
	{InstanceState, "Instance State", "text", "ANY"},
	{LaunchTime, "Launch Time", "text", "ANY"},
	{AmiID, "AMI ID", "text", "ANY"},
	{Architecture, "Architecture", "text", "ANY"},
	{RootDeviceType, "Root Device Type", "text", "ANY"},
	{VirtualizationType, "Virtualization Type", "text", "ANY"},
}

// ListViewCount is the number of leading definitions marked visible in listings.
const ListViewCount = 5

// Lookup returns the definition for a key.
func Lookup(k Key) (Definition, bool) {
	for _, d := range Definitions {
		if d.Key == k {
			return d, true
		}
	}
	return Definition{}, false
}

// ColumnName derives the registry storage column for a field, matching the
// registry's own "_snipeit_<name>_<id>" convention.
func ColumnName(name string, id int) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "_")
	return fmt.Sprintf("_snipeit_%s_%d", slug, id)
}

// Entry is one resolved row of the map.
type Entry struct {
	Key     Key
	FieldID int
	Column  string
}

// Map associates semantic keys with registry field ids. The zero value maps nothing.
type Map struct {
	ids     map[Key]int
	columns map[Key]string
}

// New builds a map from configuration. Unknown keys and non-positive ids are rejected
// so that a typo in the config file does not silently drop an attribute.
func New(ids map[string]int, columns map[string]string) (Map, error) {
	m := Map{ids: make(map[Key]int, len(ids)), columns: make(map[Key]string, len(columns))}
	var problems []string

	for _, raw := range sortedKeys(ids) {
		k := Key(strings.ToLower(raw))
		if _, ok := Lookup(k); !ok {
			problems = append(problems, fmt.Sprintf("unknown field key %q", raw))
			continue
		}
		if ids[raw] <= 0 {
			problems = append(problems, fmt.Sprintf("field %q: id must be positive, got %d", raw, ids[raw]))
			continue
		}
		m.ids[k] = ids[raw]
	}
	for raw, col := range columns {
		k := Key(strings.ToLower(raw))
		if _, ok := Lookup(k); !ok {
			problems = append(problems, fmt.Sprintf("unknown column key %q", raw))
			continue
		}
		if col = strings.TrimSpace(col); col != "" {
			m.columns[k] = col
		}
	}

	if len(problems) > 0 {
		return Map{}, fmt.Errorf("invalid field map: %s", strings.Join(problems, "; "))
	}
	return m, nil
}

// Default returns the ids of the reference registry deployment.
func Default() Map {
	m, _ := New(DefaultIDs(), nil)
	return m
}

// DefaultIDs returns a fresh copy of the reference ids, keyed for configuration.
func DefaultIDs() map[string]int {
	return map[string]int{
		string(InstanceType):       3,
		string(Description):        4,
		string(PrivateIP):          13,
		string(PublicIP):           14,
		string(Platform):           7,
		string(VpcID):              8,
		string(DNSName):            9,
		string(MACAddress):         1,
		string(VendorSupportEnd):   15,
		string(Criticity):          16,
		string(AssetOwner):         12,
		string(Region):             17,
		string(Account):            18,
		string(AvailabilityZone):   19,
		string(SubnetID):           20,
		string(SecurityGroups):     21,
		string(InstanceState):      22,
		string(LaunchTime):         23,
		string(AmiID):              24,
		string(Architecture):       25,
		string(RootDeviceType):     26,
		string(VirtualizationType): 27,
	}
}

// FieldID returns the registry id for a key.
func (m Map) FieldID(k Key) (int, bool) {
	id, ok := m.ids[k]
	return id, ok
}

// Column returns the payload column for a key, or "" when the key is unmapped.
func (m Map) Column(k Key) string {
	if col, ok := m.columns[k]; ok {
		return col
	}
	id, ok := m.ids[k]
	if !ok {
		return ""
	}
	d, _ := Lookup(k)
	return ColumnName(d.Name, id)
}

// Entries returns the mapped keys in definition order.
func (m Map) Entries() []Entry {
	var out []Entry
	for _, d := range Definitions {
		if id, ok := m.ids[d.Key]; ok {
			out = append(out, Entry{Key: d.Key, FieldID: id, Column: m.Column(d.Key)})
		}
	}
	return out
}

// Len reports how many keys are mapped.
func (m Map) Len() int { return len(m.ids) }

func sortedKeys(in map[string]int) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
