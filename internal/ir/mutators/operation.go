package mutators

import (
	"math"
	"math/rand"

	"github.com/btcsuite/btcd/txscript"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// ByteMutator perturbs a byte slice havoc-style: bit flips, byte flips,
// truncation, insertion. Pluggable so a caller with its own corpus-derived
// dictionary can override the default.
type ByteMutator func(rng *rand.Rand, data []byte) []byte

// OperationMutator resamples a randomly chosen is_operation_mutable
// instruction in place: either swapping in a type-equivalent sibling
// operation, or redrawing its literal parameter from a representative
// dictionary. LoadBytes/LoadPrivateKey defer to ByteMutate.
type OperationMutator struct {
	ByteMutate ByteMutator
}

func (OperationMutator) Name() string { return "OperationMutator" }

func (m OperationMutator) Mutate(p *ir.Program, rng *rand.Rand) (*ir.Program, bool) {
	byteMutate := m.ByteMutate
	if byteMutate == nil {
		byteMutate = havocMutateBytes
	}

	order := rng.Perm(len(p.Instructions))
	for _, idx := range order {
		op := p.Instructions[idx].Operation
		if !op.IsOperationMutable() {
			continue
		}
		newOp, ok := resampleOperation(op, p.Context, rng, byteMutate)
		if !ok {
			continue
		}
		out := p.Clone()
		out.Instructions[idx].Operation = newOp
		return out, true
	}
	return p, false
}

// siblingFamilies groups operations that are type-equivalent swap targets
// (same arity/input-output contract, different wire semantics).
var siblingFamilies = [][]ir.OpKind{
	{ir.OpSendTx, ir.OpSendTxNoWit},
	{ir.OpAddTxidInv, ir.OpAddWtxidInv, ir.OpAddTxidWithWitnessInv},
	{ir.OpAddBlockInv, ir.OpAddBlockWithWitnessInv, ir.OpAddCompactBlockInv, ir.OpAddFilteredBlockInv},
	{ir.OpBuildPayToPubKey, ir.OpBuildPayToPubKeyHash, ir.OpBuildPayToWitnessPubKeyHash},
}

func swapSibling(kind ir.OpKind, rng *rand.Rand) (ir.OpKind, bool) {
	for _, family := range siblingFamilies {
		for _, k := range family {
			if k != kind {
				continue
			}
			alts := make([]ir.OpKind, 0, len(family)-1)
			for _, other := range family {
				if other != kind {
					alts = append(alts, other)
				}
			}
			return alts[rng.Intn(len(alts))], true
		}
	}
	return kind, false
}

// resampleOperation returns a perturbed copy of op and true, or ok=false if
// nothing about op could be resampled (e.g. AddAddrV2, which IsOperationMutable
// marks mutable for family symmetry with the rest of the inventory-building
// family but has no sibling of its own and carries no literal parameter).
func resampleOperation(op ir.Operation, ctx ir.ProgramContext, rng *rand.Rand, byteMutate ByteMutator) (ir.Operation, bool) {
	if sib, ok := swapSibling(op.Kind, rng); ok {
		op.Kind = sib
		return op, true
	}

	switch op.Kind {
	case ir.OpLoadBytes:
		op.Bytes = byteMutate(rng, op.Bytes)
		return op, true

	case ir.OpLoadPrivateKey:
		op.PrivateKey = resamplePrivateKey(rng, op.PrivateKey, byteMutate)
		return op, true

	case ir.OpLoadAmount:
		op.Amount = pickInt64(rng, amountDictionary)
		return op, true

	case ir.OpLoadTxVersion:
		op.TxVersion = int32(pickInt64(rng, []int64{0, 1, 2, 3, -1, math.MaxInt32}))
		return op, true

	case ir.OpLoadBlockVersion:
		op.BlockVersion = int32(pickInt64(rng, []int64{0, 1, 2, 3, -1, 0x20000000, math.MaxInt32}))
		return op, true

	case ir.OpLoadLockTime:
		op.LockTime = uint32(pickInt64(rng, lockTimeDictionary))
		return op, true

	case ir.OpLoadSequence:
		op.Sequence = uint32(pickInt64(rng, sequenceDictionary))
		return op, true

	case ir.OpLoadBlockHeight:
		op.BlockHeight = uint32(pickInt64(rng, []int64{0, 1, 144, 210_000, math.MaxUint32}))
		return op, true

	case ir.OpLoadSigHashFlags:
		op.SigHashFlags = uint32(pickInt64(rng, sigHashDictionary))
		return op, true

	case ir.OpLoadDuration:
		op.Duration = uint64(randPowerOfTwo(rng))
		return op, true

	case ir.OpLoadSize:
		op.Size = uint64(randPowerOfTwo(rng))
		return op, true

	case ir.OpLoadTime:
		op.Time = uint32(int64(op.Time) + pickInt64(rng, []int64{-3600, -1, 0, 1, 3600}))
		return op, true

	case ir.OpLoadNode:
		n := ctx.Nodes
		if n <= 0 {
			n = 1
		}
		op.NodeIndex = uint32(rng.Intn(n))
		return op, true

	case ir.OpLoadConnection:
		n := ctx.Connections
		if n <= 0 {
			n = 1
		}
		op.ConnIndex = uint32(rng.Intn(n))
		return op, true

	case ir.OpLoadConnectionType:
		if op.ConnType == ir.ConnectionInbound {
			op.ConnType = ir.ConnectionOutbound
		} else {
			op.ConnType = ir.ConnectionInbound
		}
		return op, true

	case ir.OpLoadAddr:
		op.Addr = perturbAddrLiteral(op.Addr, rng)
		return op, true

	default:
		return op, false
	}
}

var amountDictionary = []int64{0, 1, math.MaxInt64, -1, 2_100_000_000_000_000}

// lockTimeDictionary brackets the height/timestamp switch at 500,000,000
// (BIP113's LOCKTIME_THRESHOLD) on both sides.
var lockTimeDictionary = []int64{0, 1, 499_999_999, 500_000_000, 500_000_001, math.MaxUint32}

// sequenceDictionary mixes BIP68 relative-locktime flag bits (disable = bit
// 31, type = bit 22) onto the final/near-final boundary values.
var sequenceDictionary = []int64{
	0xFFFFFFFF,       // SEQUENCE_FINAL
	0xFFFFFFFD,       // signals RBF, not final
	0,                // fully enabled relative locktime, 0 blocks
	1 << 31,          // disable flag alone
	1<<31 | 1<<22,    // disable flag + type flag
	1 << 22,          // type flag alone, locktime 0
	0x0000FFFF,       // max relative-locktime value field
}

var sigHashDictionary = []int64{
	int64(txscript.SigHashAll),
	int64(txscript.SigHashNone),
	int64(txscript.SigHashSingle),
	int64(txscript.SigHashAll | txscript.SigHashAnyOneCanPay),
	int64(txscript.SigHashNone | txscript.SigHashAnyOneCanPay),
	int64(txscript.SigHashSingle | txscript.SigHashAnyOneCanPay),
}

func pickInt64(rng *rand.Rand, dict []int64) int64 { return dict[rng.Intn(len(dict))] }

func randPowerOfTwo(rng *rand.Rand) int64 {
	if rng.Intn(8) == 0 {
		return 0
	}
	shift := rng.Intn(48)
	return int64(1) << uint(shift)
}

func perturbAddrLiteral(a ir.AddrLiteral, rng *rand.Rand) ir.AddrLiteral {
	switch rng.Intn(3) {
	case 0:
		a.Port = uint16(rng.Intn(65536))
	case 1:
		a.Services = uint64(randPowerOfTwo(rng))
	default:
		if len(a.Payload) > 0 {
			a.Payload = append([]byte(nil), a.Payload...)
			a.Payload[rng.Intn(len(a.Payload))] ^= byte(1 << uint(rng.Intn(8)))
		}
	}
	return a
}

// havocMutateBytes is the default byte-mutator: a single AFL-style havoc
// step (bit flip, byte flip, truncate, or extend with random bytes).
func havocMutateBytes(rng *rand.Rand, data []byte) []byte {
	out := append([]byte(nil), data...)
	if len(out) == 0 {
		out = append(out, byte(rng.Intn(256)))
		return out
	}
	switch rng.Intn(4) {
	case 0:
		i := rng.Intn(len(out))
		out[i] ^= 1 << uint(rng.Intn(8))
	case 1:
		i := rng.Intn(len(out))
		out[i] = byte(rng.Intn(256))
	case 2:
		if len(out) > 1 {
			out = out[:1+rng.Intn(len(out)-1)]
		}
	default:
		extra := make([]byte, 1+rng.Intn(16))
		rng.Read(extra)
		out = append(out, extra...)
	}
	return out
}

func resamplePrivateKey(rng *rand.Rand, current [32]byte, byteMutate ByteMutator) [32]byte {
	candidate := current
	for attempt := 0; attempt < 10; attempt++ {
		mutated := byteMutate(rng, candidate[:])
		var next [32]byte
		copy(next[:], mutated)
		if isValidPrivKeyScalar(next) {
			return next
		}
		candidate = next
	}
	return fixedValidPrivateKey
}

// fixedValidPrivateKey is the scalar 1, trivially < secp256k1's curve order
// and never zero.
var fixedValidPrivateKey = [32]byte{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1,
}

// secp256k1Order is the curve order n; a valid private key scalar is any
// nonzero value strictly less than it.
var secp256k1Order = [32]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE,
	0xBA, 0xAE, 0xDC, 0xE6, 0xAF, 0x48, 0xA0, 0x3B,
	0xBF, 0xD2, 0x5E, 0x8C, 0xD0, 0x36, 0x41, 0x41,
}

func isValidPrivKeyScalar(b [32]byte) bool {
	zero := true
	for _, x := range b {
		if x != 0 {
			zero = false
			break
		}
	}
	if zero {
		return false
	}
	for i := 0; i < 32; i++ {
		if b[i] < secp256k1Order[i] {
			return true
		}
		if b[i] > secp256k1Order[i] {
			return false
		}
	}
	return false // equal to the order itself is invalid
}
