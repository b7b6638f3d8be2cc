// Package bloomfilter implements the BIP37 bloom filter construction used by
// BloomFilter Load/Add generators and by the compiler's filterload/filteradd
// handlers, transliterated from Bitcoin Core's CBloomFilter.
package bloomfilter

import (
	"math"

	"github.com/btcsuite/btcd/wire"
)

const (
	// MaxFilterSize is the BIP37 bloom filter byte-size cap.
	MaxFilterSize = 36000
	// MaxHashFuncs is the BIP37 hash-function count cap.
	MaxHashFuncs = 50

	ln2Squared = 0.4804530139182014246671025263266649717305529515945455
	ln2        = 0.6931471805599453094172321214581765680755001343602552
)

// Filter is a reduced, fuzzing-oriented reimplementation of
// bitcoin::bloom::CBloomFilter: insertion and membership test only,
// constructed either empty-with-random-parameters or sized for a target
// false-positive rate over a known element count.
type Filter struct {
	data     []byte
	nHashFns uint32
	tweak    uint32
}

// New builds a filter sized for n elements at false-positive rate fpRate,
// capped at MaxFilterSize/MaxHashFuncs exactly as Bitcoin Core computes them.
func New(n int, fpRate float64, tweak uint32) *Filter {
	size := int(math.Min(-1/ln2Squared*float64(n)*math.Log(fpRate), MaxFilterSize*8) / 8)
	if size <= 0 {
		size = 1
	}
	nHashFns := int(math.Min(float64(size)*8/float64(n)*ln2, MaxHashFuncs))
	if nHashFns < 1 {
		nHashFns = 1
	}
	return &Filter{data: make([]byte, size), nHashFns: uint32(nHashFns), tweak: tweak}
}

// WithTxos builds a filter pre-populated with the given elements (serialised
// txids/outpoints), sized for them at a conservative default fpRate.
func WithTxos(elements [][]byte, tweak uint32) *Filter {
	n := len(elements)
	if n == 0 {
		n = 1
	}
	f := New(n, 0.001, tweak)
	for _, e := range elements {
		f.Insert(e)
	}
	return f
}

func (f *Filter) hash(nHashNum uint32, data []byte) uint32 {
	seed := nHashNum*0xFBA4C795 + f.tweak
	return murmur3(seed, data) % uint32(len(f.data)*8)
}

// Insert adds data to the filter.
func (f *Filter) Insert(data []byte) {
	if len(f.data) == 0 {
		return
	}
	for i := uint32(0); i < f.nHashFns; i++ {
		idx := f.hash(i, data)
		f.data[idx>>3] |= 1 << (7 & idx)
	}
}

// Contains reports whether data may be a member (false positives possible,
// false negatives never).
func (f *Filter) Contains(data []byte) bool {
	if len(f.data) == 0 {
		return false
	}
	for i := uint32(0); i < f.nHashFns; i++ {
		idx := f.hash(i, data)
		if f.data[idx>>3]&(1<<(7&idx)) == 0 {
			return false
		}
	}
	return true
}

// Data returns the filter's raw bitfield.
func (f *Filter) Data() []byte { return f.data }

// NHashFuncs returns the configured hash-function count.
func (f *Filter) NHashFuncs() uint32 { return f.nHashFns }

// Tweak returns the configured murmur3 seed tweak.
func (f *Filter) Tweak() uint32 { return f.tweak }

// ToWireFilterLoad renders the filter as a wire.MsgFilterLoad ready for
// consensus serialisation.
func (f *Filter) ToWireFilterLoad(flags wire.BloomUpdateType) *wire.MsgFilterLoad {
	return &wire.MsgFilterLoad{
		Filter:    f.data,
		HashFuncs: f.nHashFns,
		Tweak:     f.tweak,
		Flags:     flags,
	}
}

// murmur3 is MurmurHash3_x86_32, the hash function BIP37 mandates.
func murmur3(seed uint32, data []byte) uint32 {
	const c1 = 0xcc9e2d51
	const c2 = 0x1b873593

	h1 := seed
	nblocks := len(data) / 4
	for i := 0; i < nblocks; i++ {
		k1 := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2
		h1 ^= k1
		h1 = (h1 << 13) | (h1 >> 19)
		h1 = h1*5 + 0xe6546b64
	}

	tail := data[nblocks*4:]
	var k1 uint32
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2
		h1 ^= k1
	}

	h1 ^= uint32(len(data))
	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16
	return h1
}
