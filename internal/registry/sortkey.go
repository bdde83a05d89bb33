package registry

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SortKey encodes a semantic version so that lexicographic order of keys
// matches version precedence for the head-version query. Numeric fields are
// zero-padded to 12 digits; a release key ends with "~", which sorts after
// the "-<pre-release>" suffix of any pre-release of the same triple.
func SortKey(v *semver.Version) string {
	key := fmt.Sprintf("%012d.%012d.%012d", v.Major(), v.Minor(), v.Patch())
	if pre := v.Prerelease(); pre != "" {
		return key + "-" + pre
	}
	return key + "~"
}
