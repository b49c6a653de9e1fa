package store

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/ledgerflow/internal/record"
)

// DefaultCacheSize is the number of decoded records kept by default.
const DefaultCacheSize = 4096

// decodeCache memoizes record.Decode by content.
//
// Entries are keyed by the xxhash of the raw bytes and keep the bytes so a
// hash collision falls through to a real decode. Decode is pure, so a hit
// is exactly what decoding again would return; a record rewritten in the
// ledger has new bytes and therefore a new key.
type decodeCache struct {
	entries *lru.Cache[uint64, cacheEntry]
}

type cacheEntry struct {
	raw []byte
	rec record.Record
}

func newDecodeCache(size int) *decodeCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[uint64, cacheEntry](size)
	if err != nil {
		return nil
	}
	return &decodeCache{entries: c}
}

// get returns a copy of the cached decode result for data.
func (c *decodeCache) get(data []byte) (record.Record, bool) {
	if c == nil {
		return record.Record{}, false
	}
	e, ok := c.entries.Get(xxhash.Sum64(data))
	if !ok || !bytes.Equal(e.raw, data) {
		return record.Record{}, false
	}
	return e.rec.Clone(), true
}

func (c *decodeCache) put(data []byte, r record.Record) {
	if c == nil {
		return
	}
	c.entries.Add(xxhash.Sum64(data), cacheEntry{
		raw: append([]byte(nil), data...),
		rec: r.Clone(),
	})
}

func (c *decodeCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
