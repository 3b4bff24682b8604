package fieldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnName(t *testing.T) {
	cases := map[string]struct {
		name string
		id   int
		want string
	}{
		"private ip": {"Private IP Address", 13, "_snipeit_private_ip_address_13"},
		"support":    {"Vendor Support End Date", 15, "_snipeit_vendor_support_end_date_15"},
		"mac":        {"MAC Address", 1, "_snipeit_mac_address_1"},
		"spacing":    {"  AMI   ID ", 24, "_snipeit_ami_id_24"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ColumnName(tc.name, tc.id))
		})
	}
}

func TestDefaultMapCoversEveryDefinition(t *testing.T) {
	m := Default()
	require.Equal(t, len(Definitions), m.Len())

	for _, d := range Definitions {
		id, ok := m.FieldID(d.Key)
		assert.True(t, ok, "missing %s", d.Key)
		assert.Positive(t, id)
	}

	assert.Equal(t, "_snipeit_instance_type_3", m.Column(InstanceType))
	assert.Equal(t, "_snipeit_criticality_16", m.Column(Criticity))
}

func TestNewRejectsUnknownKeysAndBadIDs(t *testing.T) {
	_, err := New(map[string]int{"private_ipp": 3, "public_ip": 0}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field key "private_ipp"`)
	assert.Contains(t, err.Error(), `field "public_ip": id must be positive`)
}

func TestColumnOverrideAndUnmapped(t *testing.T) {
	m, err := New(map[string]int{"instance_type": 40}, map[string]string{"instance_type": "_snipeit_type_40"})
	require.NoError(t, err)

	assert.Equal(t, "_snipeit_type_40", m.Column(InstanceType))
	assert.Equal(t, "", m.Column(PublicIP))

	entries := m.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Key: InstanceType, FieldID: 40, Column: "_snipeit_type_40"}, entries[0])
}

func TestEntriesFollowDefinitionOrder(t *testing.T) {
	m, err := New(map[string]int{"virtualization_type": 2, "instance_type": 1}, nil)
	require.NoError(t, err)

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, InstanceType, entries[0].Key)
	assert.Equal(t, VirtualizationType, entries[1].Key)
}
