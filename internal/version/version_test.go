package version

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	tests := []struct {
		version string
		target  string
		want    bool
	}{
		{"0.1.0", "0.1.0", true},
		{"0.1.1", "0.1.0", true},
		{"0.1.0", "0.2.0", false},
		{"1.0.0", "0.9.9", true},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, IsVersionGreaterOrEqualThan(test.version, test.target), "%s >= %s", test.version, test.target)
	}
}

func TestIsVersionGreaterThan(t *testing.T) {
	assert.False(t, IsVersionGreaterThan("0.1.0", "0.1.0"))
	assert.True(t, IsVersionGreaterThan("0.1.2", "0.1.1"))
}

func TestGetMinorVersion(t *testing.T) {
	assert.Equal(t, "0.1", GetMinorVersion("0.1.5"))
	assert.Equal(t, "", GetMinorVersion("0.1"))
}

func TestSortVersion(t *testing.T) {
	versions := []string{"0.10.0", "0.2.1", "0.2.0"}
	sort.Sort(SortVersion(versions))
	require.Equal(t, []string{"0.2.0", "0.2.1", "0.10.0"}, versions)
}
