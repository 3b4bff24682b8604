package inventory

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/DrSkyle/snipesync/pkg/fieldmap"
)

const dateLayout = "2006-01-02"

// Normalizer turns EC2 instances into assets.
type Normalizer struct {
	Fields   fieldmap.Map
	Defaults Defaults
}

// Normalize maps a single instance. Every extension key is always populated,
// falling back to the sentinel defaults above.
func (n Normalizer) Normalize(inst types.Instance, account, region string) Asset {
	tag := deref(inst.InstanceId)
	tags := parseTags(inst.Tags)

	name := tags["Name"]
	if name == "" {
		name = tag
	}

	var launchDate string
	if inst.LaunchTime != nil && !inst.LaunchTime.IsZero() {
		launchDate = inst.LaunchTime.UTC().Format(dateLayout)
	}

	mac := NotApplicable
	if len(inst.NetworkInterfaces) > 0 {
		mac = orDefault(deref(inst.NetworkInterfaces[0].MacAddress), NotApplicable)
	}

	var groups []string
	for _, sg := range inst.SecurityGroups {
		if id := deref(sg.GroupId); id != "" {
			groups = append(groups, id)
		}
	}

	var az string
	if inst.Placement != nil {
		az = deref(inst.Placement.AvailabilityZone)
	}
	var state string
	if inst.State != nil {
		state = string(inst.State.Name)
	}

	values := []struct {
		key   fieldmap.Key
		value string
	}{
		{fieldmap.InstanceType, orDefault(string(inst.InstanceType), NotApplicable)},
		{fieldmap.Description, orDefault(tags["Description"], NoDescription)},
		{fieldmap.PrivateIP, orDefault(deref(inst.PrivateIpAddress), NotApplicable)},
		{fieldmap.PublicIP, orDefault(deref(inst.PublicIpAddress), NotApplicable)},
		{fieldmap.Platform, orDefault(deref(inst.PlatformDetails), DefaultPlatform)},
		{fieldmap.VpcID, orDefault(deref(inst.VpcId), NotApplicable)},
		{fieldmap.DNSName, orDefault(deref(inst.PrivateDnsName), NotApplicable)},
		{fieldmap.MACAddress, mac},
		{fieldmap.VendorSupportEnd, orDefault(tags["SupportEnd"], NotApplicable)},
		{fieldmap.Criticity, orDefault(tags["Criticity"], DefaultCriticity)},
		{fieldmap.AssetOwner, orDefault(tags["Owner"], Unassigned)},
		{fieldmap.Region, region},
		{fieldmap.Account, account},
		{fieldmap.AvailabilityZone, orDefault(az, NotApplicable)},
		{fieldmap.SubnetID, orDefault(deref(inst.SubnetId), NotApplicable)},
		{fieldmap.SecurityGroups, orDefault(strings.Join(groups, ", "), NotApplicable)},
		{fieldmap.InstanceState, orDefault(state, Unknown)},
		{fieldmap.LaunchTime, orDefault(launchDate, NotApplicable)},
		{fieldmap.AmiID, orDefault(deref(inst.ImageId), NotApplicable)},
		{fieldmap.Architecture, orDefault(string(inst.Architecture), NotApplicable)},
		{fieldmap.RootDeviceType, orDefault(string(inst.RootDeviceType), NotApplicable)},
		{fieldmap.VirtualizationType, orDefault(string(inst.VirtualizationType), NotApplicable)},
	}

	exts := make([]Extension, 0, len(values))
	for _, v := range values {
		ext := Extension{Key: v.key, Value: v.value}
		if id, ok := n.Fields.FieldID(v.key); ok {
			ext.FieldID = id
			ext.Column = n.Fields.Column(v.key)
		}
		exts = append(exts, ext)
	}

	return Asset{
		AssetTag:     tag,
		Serial:       tag,
		Name:         name,
		StatusID:     n.Defaults.StatusID,
		ModelID:      n.Defaults.ModelID,
		PurchaseDate: launchDate,
		Notes:        fmt.Sprintf("AWS Account: %s, Region: %s", account, region),
		Extensions:   exts,
	}
}

// Tags flattens EC2 tags into a map. Later duplicates win.
func Tags(in []types.Tag) map[string]string {
	return parseTags(in)
}

func parseTags(in []types.Tag) map[string]string {
	out := make(map[string]string, len(in))
	for _, t := range in {
		if t.Key != nil {
			out[*t.Key] = deref(t.Value)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
