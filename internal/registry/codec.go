package registry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Publish payload framing, as sent by cargo:
//
//	u32le  metadata length
//	bytes  metadata JSON
//	u32le  tarball length
//	bytes  tarball
//
// Trailing bytes after the tarball are ignored.

// DecodePublish splits a publish body into its metadata and the raw tarball.
// The tarball is passed through uninterpreted. The parsed version of the
// metadata is returned alongside so callers do not re-parse it.
func DecodePublish(body []byte) (PublishMeta, *semver.Version, []byte, error) {
	metaBytes, rest, err := readChunk(body)
	if err != nil {
		return PublishMeta{}, nil, nil, fmt.Errorf("%w: metadata: %s", ErrMalformedPayload, err)
	}
	tarball, _, err := readChunk(rest)
	if err != nil {
		return PublishMeta{}, nil, nil, fmt.Errorf("%w: tarball: %s", ErrMalformedPayload, err)
	}

	var meta PublishMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return PublishMeta{}, nil, nil, fmt.Errorf("%w: invalid metadata JSON", ErrMalformedPayload)
	}
	if strings.TrimSpace(meta.Name) == "" {
		return PublishMeta{}, nil, nil, fmt.Errorf("%w: package name is required", ErrMalformedPayload)
	}
	version, err := semver.NewVersion(meta.Vers)
	if err != nil {
		return PublishMeta{}, nil, nil, fmt.Errorf("%w: %q is not a valid version", ErrMalformedPayload, meta.Vers)
	}
	return meta, version, tarball, nil
}

// EncodePublish produces a publish body in the wire framing. Used by tests
// and by client-side tooling.
func EncodePublish(meta PublishMeta, tarball []byte) ([]byte, error) {
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 8+len(metaBytes)+len(tarball))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(metaBytes)))
	out = append(out, metaBytes...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(tarball)))
	out = append(out, tarball...)
	return out, nil
}

func readChunk(b []byte) (chunk, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("need 4 length bytes, have %d", len(b))
	}
	n := binary.LittleEndian.Uint32(b)
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, fmt.Errorf("declared %d bytes, %d remain", n, len(b))
	}
	return b[:n], b[n:], nil
}
