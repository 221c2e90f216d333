// Package force indexes accepted rounds by the facts recorded in their event logs.
package force

import (
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"reelsim/internal/round"
	"reelsim/internal/simerr"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Normalize renders a key as k=v pairs joined by ';' in key order.
func Normalize(key map[string]string) string {
	names := make([]string, 0, len(key))
	for k := range key {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(key[k])
	}
	return b.String()
}

// ParseKey reads the k=v;k=v form back. Empty keys and pairs without '=' are rejected.
func ParseKey(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, simerr.InvalidQuery("malformed force key pair %q", pair)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil, simerr.InvalidQuery("empty force key")
	}
	return out, nil
}

// Entry is one distinct key with the rounds that recorded it.
type Entry struct {
	Key   map[string]string `json:"-"`
	Count int               `json:"timesTriggered"`
	IDs   []uint64          `json:"bookIds"`
}

type pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type entryJson struct {
	Search []pair `json:"search"`
	Entry
}

// Builder collects force keys while rounds are accepted. It is not safe for concurrent use.
type Builder struct {
	entries map[string]*building
}

type building struct {
	key   map[string]string
	count int
	ids   map[uint64]struct{}
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]*building)}
}

// Add records the keys of round id.
func (b *Builder) Add(id uint64, keys []round.ForceKey) {
	for _, k := range keys {
		norm := Normalize(k)
		e, ok := b.entries[norm]
		if !ok {
			e = &building{key: copyKey(k), ids: make(map[uint64]struct{})}
			b.entries[norm] = e
		}
		e.count++
		e.ids[id] = struct{}{}
	}
}

// Consume adds a batch of accepted rounds.
func (b *Builder) Consume(rounds []*round.Round) error {
	for _, r := range rounds {
		b.Add(r.ID, r.Force)
	}
	return nil
}

// Build freezes the collected keys.
func (b *Builder) Build() *Index {
	ix := &Index{entries: make(map[string]*Entry, len(b.entries))}
	for norm, e := range b.entries {
		ids := make([]uint64, 0, len(e.ids))
		for id := range e.ids {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		ix.entries[norm] = &Entry{Key: copyKey(e.key), Count: e.count, IDs: ids}
	}
	return ix
}

// Index maps normalized keys to sorted round ids. It is immutable once built.
type Index struct {
	entries map[string]*Entry
}

// Len is the number of distinct keys.
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns every entry ordered by normalized key.
func (ix *Index) Entries() []*Entry {
	names := make([]string, 0, len(ix.entries))
	for k := range ix.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]*Entry, len(names))
	for i, k := range names {
		out[i] = ix.entries[k]
	}
	return out
}

// Count is how many times rounds recorded keys partially matching query.
func (ix *Index) Count(query map[string]string) int {
	n := 0
	for _, e := range ix.entries {
		if contains(e.Key, query) {
			n += e.Count
		}
	}
	return n
}

// Search returns the union of ids of every key that contains all pairs of query.
func (ix *Index) Search(query map[string]string) ([]uint64, error) {
	if len(query) == 0 {
		return nil, simerr.InvalidQuery("empty force key")
	}
	set := make(map[uint64]struct{})
	for _, e := range ix.entries {
		if !contains(e.Key, query) {
			continue
		}
		for _, id := range e.IDs {
			set[id] = struct{}{}
		}
	}
	return sortedIDs(set), nil
}

// SearchAll returns the ids matching every query. A single query behaves like Search.
func (ix *Index) SearchAll(queries []map[string]string) ([]uint64, error) {
	if len(queries) == 0 {
		return nil, simerr.InvalidQuery("no force keys given")
	}
	acc, err := ix.Search(queries[0])
	if err != nil {
		return nil, err
	}
	for _, q := range queries[1:] {
		ids, err := ix.Search(q)
		if err != nil {
			return nil, err
		}
		acc = Intersect(acc, ids)
	}
	return acc, nil
}

func contains(key, query map[string]string) bool {
	for k, v := range query {
		if got, ok := key[k]; !ok || got != v {
			return false
		}
	}
	return true
}

func sortedIDs(set map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Intersect merges two ascending id lists.
func Intersect(a, b []uint64) []uint64 {
	out := make([]uint64, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func copyKey(k map[string]string) map[string]string {
	out := make(map[string]string, len(k))
	for n, v := range k {
		out[n] = v
	}
	return out
}

// WriteJSON writes the index as a list of {search, timesTriggered, bookIds} objects.
func (ix *Index) WriteJSON(w io.Writer) error {
	entries := ix.Entries()
	out := make([]entryJson, len(entries))
	for i, e := range entries {
		names := make([]string, 0, len(e.Key))
		for k := range e.Key {
			names = append(names, k)
		}
		sort.Strings(names)
		search := make([]pair, len(names))
		for j, k := range names {
			search[j] = pair{Name: k, Value: e.Key[k]}
		}
		out[i] = entryJson{Search: search, Entry: *e}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteFile writes the index to path.
func (ix *Index) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ix.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON loads an index written by WriteJSON.
func ReadJSON(r io.Reader) (*Index, error) {
	var in []entryJson
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, err
	}
	ix := &Index{entries: make(map[string]*Entry, len(in))}
	for _, ej := range in {
		key := make(map[string]string, len(ej.Search))
		for _, p := range ej.Search {
			key[p.Name] = p.Value
		}
		e := ej.Entry
		e.Key = key
		slices.Sort(e.IDs)
		ix.entries[Normalize(key)] = &e
	}
	return ix, nil
}

// ReadFile loads an index from path.
func ReadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}
