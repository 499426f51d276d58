package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// maxLine bounds a single JSONL entry; levels are embedded in solve records.
const maxLine = 16 << 20

// ReadJSONL calls fn for every line of a .jsonl or .jsonl.zst file. Blank
// lines are skipped. Returning an error from fn stops the scan. A .zst file
// that is still open for writing yields every record flushed so far.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	zst := strings.HasSuffix(path, ".zst")
	if zst {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer dec.Close()
		r = dec
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		if err := fn(b); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	// A file still being written ends without a frame trailer.
	if err := sc.Err(); err != nil && !(zst && errors.Is(err, io.ErrUnexpectedEOF)) {
		return err
	}
	return nil
}

// ReadSolves decodes every SolveRecord in path.
func ReadSolves(path string, fn func(SolveRecord) error) error {
	return ReadJSONL(path, func(line []byte) error {
		var rec SolveRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		return fn(rec)
	})
}

// Files lists <dir>/<prefix>-*.jsonl.zst in name (and so hour) order.
func Files(dir, prefix string) ([]string, error) {
	out, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
