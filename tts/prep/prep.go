// Package prep turns formatted source into the chunks and position map a
// playback session needs.
package prep

import (
	"crypto/sha256"
	"strings"

	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/tts/chunker"
	"github.com/dgnsrekt/readalong/tts/markdown"
	"github.com/dgnsrekt/readalong/tts/textmap"
)

// DefaultCacheSize is the number of prepared texts a Preparer keeps.
const DefaultCacheSize = 16

// PreparedText is the immutable result of preparing a source text.
type PreparedText struct {
	// Chunks joined in order reproduce the plain text.
	Chunks []string `yaml:"chunks"`
	// Map translates plain offsets to source offsets.
	Map textmap.Map `yaml:"map"`
	// ChunkOffsets[i] is the plain offset at which Chunks[i] begins.
	ChunkOffsets []int `yaml:"chunk_offsets"`
}

// PlainText returns the full plain text.
func (p *PreparedText) PlainText() string {
	return strings.Join(p.Chunks, "")
}

// Len returns the length of the plain text.
func (p *PreparedText) Len() int {
	if len(p.Chunks) == 0 {
		return 0
	}
	last := len(p.Chunks) - 1
	return p.ChunkOffsets[last] + len(p.Chunks[last])
}

// ChunkAt returns the index of the chunk containing plainOffset, or -1.
func (p *PreparedText) ChunkAt(plainOffset int) int {
	return chunker.Result{Chunks: p.Chunks, Offsets: p.ChunkOffsets}.IndexOf(plainOffset)
}

// ToEditorRange maps a plain range back to source offsets.
func (p *PreparedText) ToEditorRange(plainFrom, plainTo int) (textmap.EditorRange, bool) {
	return ToEditorRange(p.Map, plainFrom, plainTo)
}

// Prepare converts source and splits the plain text into chunks of at most
// maxChunkChars bytes. ok is false when there is nothing to speak.
func Prepare(source string, maxChunkChars, baseOffset int) (*PreparedText, bool) {
	conv := markdown.Convert(source, baseOffset)
	if strings.TrimSpace(conv.Plain) == "" {
		return nil, false
	}

	split := chunker.Split(conv.Plain, maxChunkChars)
	return &PreparedText{
		Chunks:       split.Chunks,
		Map:          conv.Map,
		ChunkOffsets: split.Offsets,
	}, true
}

// ToEditorRange maps the plain range [plainFrom, plainTo) to a source range.
func ToEditorRange(m textmap.Map, plainFrom, plainTo int) (textmap.EditorRange, bool) {
	return m.ToRange(plainFrom, plainTo)
}

type cacheKey struct {
	sum      [sha256.Size]byte
	maxChunk int
	base     int
}

// Preparer prepares texts and reuses results for sources it has already
// seen. PreparedText values are never mutated, so sharing them is safe.
type Preparer struct {
	cache *cache.LRU[cacheKey, *PreparedText]
}

// NewPreparer creates a Preparer that remembers up to size results. A size
// of zero or less disables reuse.
func NewPreparer(size int) *Preparer {
	if size <= 0 {
		return &Preparer{}
	}
	return &Preparer{cache: cache.NewLRU[cacheKey, *PreparedText](int64(size), nil)}
}

// Prepare is like the package-level Prepare but consults the cache first.
func (p *Preparer) Prepare(source string, maxChunkChars, baseOffset int) (*PreparedText, bool) {
	if p == nil || p.cache == nil {
		return Prepare(source, maxChunkChars, baseOffset)
	}

	key := cacheKey{sum: sha256.Sum256([]byte(source)), maxChunk: maxChunkChars, base: baseOffset}
	if prepared, ok := p.cache.Get(key); ok {
		return prepared, true
	}

	prepared, ok := Prepare(source, maxChunkChars, baseOffset)
	if !ok {
		return nil, false
	}
	_ = p.cache.Put(key, prepared)
	return prepared, true
}

// Stats reports cache usage.
func (p *Preparer) Stats() cache.Stats {
	if p == nil || p.cache == nil {
		return cache.Stats{}
	}
	return p.cache.Stats()
}
