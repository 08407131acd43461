package reverb

import (
	"math/rand/v2"
	"sync"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

// defaultCacheSize bounds the number of impulse responses kept alive.
const defaultCacheSize = 4

type cacheKey struct {
	sampleRate float64
	duration   float64
	decay      float64
}

type cacheEntry struct {
	key cacheKey
	ir  *buffer.Buffer
}

// Cache hands out impulse responses keyed by sample rate, duration and
// decay, generating a new one on a miss. Every generation draws from a
// fresh stream derived from the seed, so runs with the same seed and the
// same request sequence are reproducible.
//
// Returned buffers are shared and must be treated as read-only.
// Cache is safe for concurrent use.
type Cache struct {
	mu          sync.Mutex
	seed        uint64
	generations uint64
	size        int
	entries     []cacheEntry
}

// NewCache returns an empty cache.
func NewCache(seed uint64) *Cache {
	return &Cache{seed: seed, size: defaultCacheSize}
}

// Impulse returns the impulse response for the given parameters.
func (c *Cache) Impulse(sampleRate, duration, decay float64) (*buffer.Buffer, error) {
	key := cacheKey{sampleRate: sampleRate, duration: duration, decay: decay}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.key == key {
			// Move to the front so the oldest entry is evicted first.
			copy(c.entries[1:i+1], c.entries[:i])
			c.entries[0] = e

			return e.ir, nil
		}
	}

	c.generations++
	rng := rand.New(rand.NewPCG(c.seed, c.generations))

	ir, err := Generate(rng, sampleRate, duration, decay)
	if err != nil {
		return nil, err
	}

	if len(c.entries) < c.size {
		c.entries = append(c.entries, cacheEntry{})
	}

	copy(c.entries[1:], c.entries[:len(c.entries)-1])
	c.entries[0] = cacheEntry{key: key, ir: ir}

	return ir, nil
}

// Len returns the number of cached impulse responses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
