package reader

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tweag/nixtract/types"
)

// JSONLReader is a Reader backed by a derivation graph loaded entirely
// into memory from a JSONL file (the output of `nixtract extract`).
type JSONLReader struct {
	byAttributePath map[string]*types.Record
	order           []string // insertion order, for stable ListDerivations iteration before sort
}

// LoadJSONL reads every record from path and returns a Reader over it.
// path may be "-" to read from stdin, matching graph.FileSink's symmetric
// convention for the write side.
func LoadJSONL(path string) (*JSONLReader, error) {
	var f *os.File
	if path == "-" {
		f = os.Stdin
	} else {
		opened, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open graph file %q: %w", path, err)
		}
		defer opened.Close()
		f = opened
	}

	r := &JSONLReader{byAttributePath: make(map[string]*types.Record)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := types.ParseRecord([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("parse record at line %d: %w", lineNo, err)
		}
		key := rec.AttributePath.String()
		if _, exists := r.byAttributePath[key]; !exists {
			r.order = append(r.order, key)
		}
		r.byAttributePath[key] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read graph file %q: %w", path, err)
	}

	return r, nil
}

// InspectDerivation returns the detail view for one attribute path.
func (r *JSONLReader) InspectDerivation(attributePath string) (*InspectDerivationResponse, bool) {
	rec, ok := r.byAttributePath[attributePath]
	if !ok {
		return nil, false
	}
	return derivationView(rec), true
}

// ListDerivations returns every derivation, sorted by attribute path,
// filtered by prefix and capped at opts.Limit (0 means unbounded).
func (r *JSONLReader) ListDerivations(opts ListDerivationsOptions) []ListDerivationItem {
	keys := make([]string, 0, len(r.order))
	for _, k := range r.order {
		if opts.AttributePathPrefix != "" && !strings.HasPrefix(k, opts.AttributePathPrefix) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}

	items := make([]ListDerivationItem, 0, len(keys))
	for _, k := range keys {
		rec := r.byAttributePath[k]
		items = append(items, ListDerivationItem{
			AttributePath: k,
			Name:          rec.Name,
			OutputPath:    string(rec.OutputPath),
		})
	}
	return items
}

// Stats returns aggregate counts over the whole graph.
func (r *JSONLReader) Stats() *GraphStats {
	records := make([]*types.Record, 0, len(r.byAttributePath))
	for _, rec := range r.byAttributePath {
		records = append(records, rec)
	}
	return computeStats(records)
}
