package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"graft/internal/graph"
	"graft/internal/snippet"
)

// Bump when the payload layout changes so stale entries self-invalidate.
const diskCacheSchemaVersion uint16 = 1

// Digest keys disk cache entries: SHA-256 of the canonical key string.
type Digest [sha256.Size]byte

// KeyDigest computes the cache digest of a canonical specialization key.
func KeyDigest(canonical string) Digest {
	return sha256.Sum256([]byte(canonical))
}

// DiskCache persists built templates across runs, keyed by Digest.
// Safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// slotSnap mirrors snippet.ParamSlot for serialization.
type slotSnap struct {
	Name     string
	IsVararg bool
	Single   int32
	Vararg   []int32
}

// exitSnap records one exit-jump group.
type exitSnap struct {
	Index int32
	Jumps []int32
}

// DiskPayload stores a built template: the graph snapshot plus the node
// roles the instantiator needs.
type DiskPayload struct {
	Schema uint16

	Key       string
	Signature string

	Graph          *graph.Snapshot
	Entry          int32
	Terminal       int32
	ReturnProducer int32
	SideEffect     int32
	Stamp          int32

	Params []slotSnap
	Exits  []exitSnap
}

// OpenDiskCache initializes a disk cache at the standard per-user location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt initializes a disk cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// Subdirectory keeps the cache root listable by hand.
	return filepath.Join(c.dir, "tpl", hexKey+".mp")
}

// Put serializes a template and writes it atomically.
func (c *DiskCache) Put(t *snippet.Template) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := templateToDiskPayload(t)
	p := c.pathFor(KeyDigest(t.Name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the template stored for the canonical key. Returns false on a
// miss or a stale schema.
func (c *DiskCache) Get(canonical string) (*snippet.Template, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(KeyDigest(canonical))
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload DiskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != diskCacheSchemaVersion || payload.Key != canonical {
		return nil, false, nil
	}
	t, err := diskPayloadToTemplate(&payload)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// DropAll invalidates the whole cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

func templateToDiskPayload(t *snippet.Template) *DiskPayload {
	payload := &DiskPayload{
		Schema:         diskCacheSchemaVersion,
		Key:            t.Name,
		Signature:      t.Signature(),
		Graph:          graph.Snap(t.Graph),
		Entry:          int32(t.Entry),
		Terminal:       int32(t.Terminal),
		ReturnProducer: int32(t.ReturnProducer),
		SideEffect:     int32(t.SideEffect),
		Stamp:          int32(t.Stamp),
	}
	names := make([]string, 0, len(t.Params))
	for name := range t.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		slot := t.Params[name]
		ss := slotSnap{Name: name, IsVararg: slot.IsVararg, Single: int32(slot.Single)}
		for _, id := range slot.Vararg {
			ss.Vararg = append(ss.Vararg, int32(id))
		}
		payload.Params = append(payload.Params, ss)
	}
	idxs := make([]int32, 0, len(t.ExitJumps))
	for idx := range t.ExitJumps {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	for _, idx := range idxs {
		es := exitSnap{Index: idx}
		for _, id := range t.ExitJumps[idx] {
			es.Jumps = append(es.Jumps, int32(id))
		}
		payload.Exits = append(payload.Exits, es)
	}
	return payload
}

func diskPayloadToTemplate(payload *DiskPayload) (*snippet.Template, error) {
	g, err := graph.Restore(payload.Graph)
	if err != nil {
		return nil, err
	}
	t := &snippet.Template{
		Name:           payload.Key,
		Graph:          g,
		Entry:          graph.NodeID(payload.Entry),
		Terminal:       graph.NodeID(payload.Terminal),
		ReturnProducer: graph.NodeID(payload.ReturnProducer),
		SideEffect:     graph.NodeID(payload.SideEffect),
		Stamp:          graph.NodeID(payload.Stamp),
		Params:         make(map[string]snippet.ParamSlot, len(payload.Params)),
	}
	for _, ss := range payload.Params {
		slot := snippet.ParamSlot{IsVararg: ss.IsVararg, Single: graph.NodeID(ss.Single)}
		for _, id := range ss.Vararg {
			slot.Vararg = append(slot.Vararg, graph.NodeID(id))
		}
		t.Params[ss.Name] = slot
	}
	if len(payload.Exits) > 0 {
		t.ExitJumps = make(map[int32][]graph.NodeID, len(payload.Exits))
		for _, es := range payload.Exits {
			for _, id := range es.Jumps {
				t.ExitJumps[es.Index] = append(t.ExitJumps[es.Index], graph.NodeID(id))
			}
		}
	}
	return t, nil
}
