package pattern

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// Cache memoizes Compile results keyed by a blake2b-256 hash of the phrase
// text, avoiding re-parsing an artifact it has already seen rather than
// keying off source location (two identical phrases in different files
// should share one Compiled).
type Cache struct {
	mu    sync.RWMutex
	byKey map[[32]byte]*Compiled
}

// NewCache builds an empty pattern cache.
func NewCache() *Cache {
	return &Cache{byKey: make(map[[32]byte]*Compiled)}
}

func cacheKey(phrase string) [32]byte {
	return blake2b.Sum256([]byte(phrase))
}

// Get compiles phrase, reusing a previous compilation keyed by its content
// hash when one exists.
func (c *Cache) Get(phrase string) (*Compiled, error) {
	key := cacheKey(phrase)

	c.mu.RLock()
	if cp, ok := c.byKey[key]; ok {
		c.mu.RUnlock()
		return cp, nil
	}
	c.mu.RUnlock()

	cp, err := Compile(phrase)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.byKey[key] = cp
	c.mu.Unlock()
	return cp, nil
}

// wireFormat is the CBOR-serializable projection of a Compiled pattern, used
// to persist a warm cache across interpreter runs (e.g. a long-lived host
// process that repeatedly compiles the same handful of phrases).
type wireFormat struct {
	Phrase      string `cbor:"phrase"`
	AtomsCBOR   []byte `cbor:"atoms"`
	IgnoreCase  bool   `cbor:"ignore_case"`
	AnchorBegin bool   `cbor:"anchor_begin"`
	AnchorEnd   bool   `cbor:"anchor_end"`
}

// MarshalCBOR encodes c for on-disk cache persistence.
func (c *Compiled) MarshalCBOR() ([]byte, error) {
	atomsCBOR, err := cbor.Marshal(c.Atoms)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(wireFormat{
		Phrase:      c.Phrase,
		AtomsCBOR:   atomsCBOR,
		IgnoreCase:  c.IgnoreCase,
		AnchorBegin: c.AnchorBegin,
		AnchorEnd:   c.AnchorEnd,
	})
}

// UnmarshalCBOR decodes a Compiled previously written by MarshalCBOR.
func (c *Compiled) UnmarshalCBOR(data []byte) error {
	var w wireFormat
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	var atoms []Atom
	if err := cbor.Unmarshal(w.AtomsCBOR, &atoms); err != nil {
		return err
	}
	c.Phrase = w.Phrase
	c.Atoms = atoms
	c.IgnoreCase = w.IgnoreCase
	c.AnchorBegin = w.AnchorBegin
	c.AnchorEnd = w.AnchorEnd
	return nil
}

// DumpCache serializes every entry currently in c to CBOR, keyed by the
// phrase's raw 32-byte hash (as a string) so a restarted process can warm-start without
// re-parsing any phrase it already compiled.
func (c *Cache) DumpCache() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make(map[string]*Compiled, len(c.byKey))
	for k, v := range c.byKey {
		entries[string(k[:])] = v
	}
	return cbor.Marshal(entries)
}

// LoadCache restores entries previously produced by DumpCache, merging them
// into c without clearing existing entries.
func (c *Cache) LoadCache(data []byte) error {
	var entries map[string]*Compiled
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		var key [32]byte
		copy(key[:], []byte(k))
		c.byKey[key] = v
	}
	return nil
}
