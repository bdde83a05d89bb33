package registry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderIndex serializes version records into the line-delimited index
// document: one JSON object per published version, in publish order.
func RenderIndex(infos []PackageInfo) (string, error) {
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		data, err := json.Marshal(info)
		if err != nil {
			return "", fmt.Errorf("encode index record %s-%s: %w", info.Name, info.Vers, err)
		}
		lines = append(lines, string(data))
	}
	return strings.Join(lines, "\n"), nil
}

// IndexPath returns the sharded index location for a package name, following
// the registry index layout: /1/{name}, /2/{name}, /3/{c}/{name} and
// /{ab}/{cd}/{name} for longer names.
func IndexPath(name string) string {
	switch len(name) {
	case 0:
		return ""
	case 1:
		return "1/" + name
	case 2:
		return "2/" + name
	case 3:
		return fmt.Sprintf("3/%s/%s", name[:1], name)
	default:
		return fmt.Sprintf("%s/%s/%s", name[:2], name[2:4], name)
	}
}
