package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"campaign.ai/internal/sim/world"
)

// Segments lists the log files under dir whose name starts with prefix, in
// turn order.
func Segments(dir, prefix string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	// Zero-padded segment numbers sort lexically.
	sort.Strings(paths)
	return paths, nil
}

// ReadJSONL calls fn for every line of a .jsonl.zst file.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return sc.Err()
}

// ReadTurns decodes every turn entry under dataDir/turns whose turn lies in
// [from, to]. to <= 0 means no upper bound.
func ReadTurns(dataDir string, from, to int, fn func(world.TurnLogEntry) error) error {
	paths, err := Segments(filepath.Join(dataDir, "turns"), "turns")
	if err != nil {
		return err
	}
	for _, p := range paths {
		err := ReadJSONL(p, func(line []byte) error {
			var e world.TurnLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			if e.Turn < from || (to > 0 && e.Turn > to) {
				return nil
			}
			return fn(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func ReadDecisions(dataDir string, fn func(world.DecisionEntry) error) error {
	paths, err := Segments(filepath.Join(dataDir, "decisions"), "decisions")
	if err != nil {
		return err
	}
	for _, p := range paths {
		err := ReadJSONL(p, func(line []byte) error {
			var e world.DecisionEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			return fn(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
