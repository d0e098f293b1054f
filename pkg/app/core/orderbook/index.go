package orderbook

import "fmt"

// Compaction decides how an index closes the gap left by a removed order.
// Either way, positions are not stable across mutations: an order's index
// can change whenever another order in the same sequence is removed. Reads
// between mutations, restarts included, see the same positions.
type Compaction uint8

const (
	// SwapRemove moves the last entry into the vacated slot. O(1).
	SwapRemove Compaction = iota
	// StableRemove shifts later entries down, keeping insertion order. O(n).
	StableRemove
)

func (c Compaction) String() string {
	switch c {
	case SwapRemove:
		return "swap"
	case StableRemove:
		return "stable"
	default:
		return fmt.Sprintf("Compaction(%d)", uint8(c))
	}
}

func ParseCompaction(s string) (Compaction, error) {
	switch s {
	case "", "swap":
		return SwapRemove, nil
	case "stable":
		return StableRemove, nil
	default:
		return 0, fmt.Errorf("unknown index compaction %q (want swap or stable)", s)
	}
}

// Index maps a key to the ordered sequence of order ids filed under it.
// Each order id lives under at most one key, so a single position map
// serves every sequence.
type Index[K comparable] struct {
	policy Compaction
	seqs   map[K][]uint64
	pos    map[uint64]int
}

func NewIndex[K comparable](policy Compaction) *Index[K] {
	return &Index[K]{
		policy: policy,
		seqs:   make(map[K][]uint64),
		pos:    make(map[uint64]int),
	}
}

func (ix *Index[K]) Add(k K, id uint64) {
	ix.pos[id] = len(ix.seqs[k])
	ix.seqs[k] = append(ix.seqs[k], id)
}

// Remove drops id from k's sequence. Reports false if it was not there.
func (ix *Index[K]) Remove(k K, id uint64) bool {
	i, ok := ix.slot(k, id)
	if !ok {
		return false
	}
	delete(ix.pos, id)
	seq := compact(ix.policy, ix.seqs[k], i)
	switch ix.policy {
	case StableRemove:
		for j := i; j < len(seq); j++ {
			ix.pos[seq[j]] = j
		}
	default:
		if i < len(seq) {
			ix.pos[seq[i]] = i
		}
	}

	if len(seq) == 0 {
		delete(ix.seqs, k)
	} else {
		ix.seqs[k] = seq
	}
	return true
}

// AfterAdd returns what k's sequence will be once id is added. The index is
// not modified.
func (ix *Index[K]) AfterAdd(k K, id uint64) []uint64 {
	return append(ix.List(k), id)
}

// AfterRemove returns what k's sequence will be once id is removed. The
// index is not modified.
func (ix *Index[K]) AfterRemove(k K, id uint64) ([]uint64, bool) {
	i, ok := ix.slot(k, id)
	if !ok {
		return nil, false
	}
	return compact(ix.policy, ix.List(k), i), true
}

func (ix *Index[K]) slot(k K, id uint64) (int, bool) {
	i, ok := ix.pos[id]
	seq := ix.seqs[k]
	if !ok || i >= len(seq) || seq[i] != id {
		return 0, false
	}
	return i, true
}

// compact closes the gap at i in place and returns the shortened slice.
func compact(policy Compaction, seq []uint64, i int) []uint64 {
	last := len(seq) - 1
	switch policy {
	case StableRemove:
		copy(seq[i:], seq[i+1:])
	default:
		seq[i] = seq[last]
	}
	return seq[:last]
}

// At returns the id at position i of k's sequence.
func (ix *Index[K]) At(k K, i uint64) (uint64, bool) {
	seq := ix.seqs[k]
	if i >= uint64(len(seq)) {
		return 0, false
	}
	return seq[i], true
}

// List returns a copy of k's sequence.
func (ix *Index[K]) List(k K) []uint64 {
	return append([]uint64{}, ix.seqs[k]...)
}

func (ix *Index[K]) Len(k K) int { return len(ix.seqs[k]) }

// Size is the number of ids across all keys.
func (ix *Index[K]) Size() int { return len(ix.pos) }

// Keys lists every key with a non-empty sequence, in no particular order.
func (ix *Index[K]) Keys() []K {
	out := make([]K, 0, len(ix.seqs))
	for k := range ix.seqs {
		out = append(out, k)
	}
	return out
}

// Position reports where id currently sits.
func (ix *Index[K]) Position(id uint64) (int, bool) {
	i, ok := ix.pos[id]
	return i, ok
}
