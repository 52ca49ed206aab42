package raster

import (
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/airbusgeo/rawraster/internal/utils"
)

// block is a scanline of a band in the block cache, in host order and packed
type block struct {
	data  []byte
	dirty bool
}

// blockIO reads and writes the blocks of a band
type blockIO interface {
	ReadBlock(x, y int, buf []byte) error
	WriteBlock(x, y int, buf []byte) error
}

// blockCache is the LRU cache of the blocks of a band, used by the generic IO path.
// Dirty blocks are written back when they are evicted or flushed.
type blockCache struct {
	lines      *lru.Cache
	band       blockIO
	blockBytes int
	logger     *zap.Logger
	err        error
}

func newBlockCache(band blockIO, blockBytes, cacheBytes int, logger *zap.Logger) (*blockCache, error) {
	bc := &blockCache{band: band, blockBytes: blockBytes, logger: logger}
	var err error
	if bc.lines, err = lru.NewWithEvict(max(1, cacheBytes/blockBytes), bc.evicted); err != nil {
		return nil, newError(ConstructionError, "block cache: %v", err)
	}
	return bc, nil
}

func (bc *blockCache) evicted(key, value interface{}) {
	blk := value.(*block)
	if !blk.dirty {
		return
	}
	y := key.(int)
	bc.logger.Debug("write back evicted block", zap.Int("line", y))
	blk.dirty = false
	if err := bc.band.WriteBlock(0, y, blk.data); err != nil {
		bc.err = utils.MergeErrors(true, bc.err, err)
	}
}

// takeErr returns and clears the errors of the write backs
func (bc *blockCache) takeErr() error {
	err := bc.err
	bc.err = nil
	return err
}

// cached returns true if the block of line y is in the cache
func (bc *blockCache) cached(y int) bool {
	return bc.lines.Contains(y)
}

// get returns the block of line y, reading it from the band if it is not cached and load is true.
// A block that is not loaded is zero-filled: the caller is expected to overwrite all of it.
func (bc *blockCache) get(y int, load bool) (*block, error) {
	if v, ok := bc.lines.Get(y); ok {
		return v.(*block), nil
	}
	blk := &block{data: make([]byte, bc.blockBytes)}
	if load {
		if err := bc.band.ReadBlock(0, y, blk.data); err != nil {
			return nil, err
		}
	}
	bc.lines.Add(y, blk)
	return blk, bc.takeErr()
}

// flush writes the dirty blocks in increasing line order. Blocks stay cached.
func (bc *blockCache) flush() error {
	keys := bc.lines.Keys()
	lines := make([]int, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k.(int))
	}
	sort.Ints(lines)
	var err error
	for _, y := range lines {
		v, ok := bc.lines.Peek(y)
		if !ok {
			continue
		}
		blk := v.(*block)
		if !blk.dirty {
			continue
		}
		if werr := bc.band.WriteBlock(0, y, blk.data); werr != nil {
			err = utils.MergeErrors(true, err, werr)
			continue
		}
		blk.dirty = false
	}
	return utils.MergeErrors(true, err, bc.takeErr())
}

// invalidate drops the blocks of lines [from, to). Dirty blocks are written back first.
func (bc *blockCache) invalidate(from, to int) error {
	for _, k := range bc.lines.Keys() {
		if y := k.(int); y >= from && y < to {
			bc.lines.Remove(y)
		}
	}
	return bc.takeErr()
}

// purge drops all the blocks, writing back the dirty ones
func (bc *blockCache) purge() error {
	bc.lines.Purge()
	return bc.takeErr()
}
