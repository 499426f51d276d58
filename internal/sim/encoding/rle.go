// Package encoding packs action paths into a compact text form for storage.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"blockmaze.ai/internal/sim/actions"
)

// maxRun caps a single run so that it always fits an int on decode.
const maxRun = 1 << 31

// EncodeActions encodes a path as base64 over (action, run_len) uvarint pairs.
// An empty path encodes to "".
func EncodeActions(path []actions.Action) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(path); {
		a := path[i]
		run := 1
		for j := i + 1; j < len(path) && path[j] == a && run < maxRun; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(a))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeActions(b64 string) ([]actions.Action, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []actions.Action
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n

		a := actions.Action(v)
		if v > 0xFF || !a.Valid() {
			return nil, fmt.Errorf("unknown action id %d", v)
		}
		if run == 0 || run > maxRun {
			return nil, fmt.Errorf("bad run length %d", run)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, a)
		}
	}
	return out, nil
}
