// Package compiler lowers a validated IR program into a CompiledProgram: a
// flat, ordered sequence of wire-level actions ready for the external
// wire-sender. The compiler is only ever fed programs that already
// passed builder validation; any failure here is a bug in the
// builder/validator, not a recoverable condition.
package compiler

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// CompiledAction is one element of the linear output the external
// wire-sender executes in order.
type CompiledAction struct {
	Kind ActionKind

	Connection int
	Network    string // Connect only

	Command string // SendRawMessage only
	Payload []byte // SendRawMessage only

	Seconds int64 // SetTime only
}

type ActionKind int

const (
	ActionConnect ActionKind = iota
	ActionSendRawMessage
	ActionSetTime
)

// CompiledProgram is the compiler's output: the ordered action list plus the
// context it was compiled against (carried through for the wire-sender's
// bookkeeping).
type CompiledProgram struct {
	Context ir.ProgramContext
	Actions []CompiledAction
}

// MaxCompiledSize is the implementation-chosen cap on a single compiled
// program's total serialised payload size: exceeding it aborts compilation
// rather than silently truncating output, so the harness can
// deterministically drop the oversized testcase.
const MaxCompiledSize = 8 * 1024 * 1024

// CompilerError is the compiler's narrow error taxonomy: anything beyond
// these indicates a builder/validator bug, since the compiler only ever
// consumes pre-validated programs.
type CompilerError struct {
	Kind    CompilerErrorKind
	Index   int
	Message string
}

type CompilerErrorKind int

const (
	ErrVariableNotFound CompilerErrorKind = iota
	ErrIncorrectVariableType
	ErrIncorrectNumberOfInputs
	ErrPayloadTooLarge
	ErrMisc
)

func (e *CompilerError) Error() string {
	return fmt.Sprintf("compiler: instruction %d: %s", e.Index, e.Message)
}

func newErr(index int, kind CompilerErrorKind, format string, args ...any) *CompilerError {
	return &CompilerError{Kind: kind, Index: index, Message: fmt.Sprintf(format, args...)}
}

// Scripts is the compiled form of the IR's Scripts variable: a scriptPubKey
// plus the scriptSig/witness to spend it, with signing deferred until the
// owning transaction's inputs and outputs are both known.
type Scripts struct {
	ScriptPubKey []byte
	ScriptSig    []byte
	Witness      wire.TxWitness

	RequiresSigning bool
	SignOp          ir.OpKind
	PrivKey         *btcec.PrivateKey
	SigHashFlags    uint32
}

// Txo is a spendable output reference, produced either by EndBuildTx (every
// output of a just-finalised transaction) or by a pre-seeded LoadTxo.
type Txo struct {
	Txid   chainHash
	Vout   uint32
	Amount int64
	Script []byte

	// Spender carries the Scripts that produced this output (nil for
	// pre-seeded LoadTxo literals, which are spent with an empty scriptSig).
	Spender *Scripts
	// Annex marks a Taproot spend of this Txo as carrying a BIP341 annex,
	// set by TaprootTxoUseAnnex.
	Annex bool
}

// chainHash avoids importing chainhash at this point in the file purely for
// readability; it is a type alias so call sites still get the real type.
type chainHash = [32]byte

// mutTx is the mutable, in-progress transaction container addressed by a
// BeginBuildTx/EndBuildTx pair.
type mutTx struct {
	version  int32
	lockTime uint32
	inputs   []*wire.TxIn
	outputs  []*wire.TxOut
	// inputTxos mirrors inputs: the Txo each TxIn consumes, needed at
	// finalisation time to compute sighashes and fee-capping.
	inputTxos   []Txo
	totalInput  int64
	totalOutput int64
}

// mutBlockTxns is the mutable container for a BeginBlockTransactions scope.
type mutBlockTxns struct {
	txs []*wire.MsgTx
}

// mutInventory is the mutable container for a BeginBuildInventory scope.
type mutInventory struct {
	items []*wire.InvVect
}

// mutAddrList is the mutable container for addr/addrv2 list scopes.
type mutAddrList struct {
	entries []wire.NetAddressV2
	v2      bool
}

// mutWitnessStack is the mutable container for a witness-stack scope.
type mutWitnessStack struct {
	stack wire.TxWitness
}

// mutFilter is the mutable container for a BeginBuildFilterLoad scope.
type mutFilter struct {
	data     []byte
	nHashFns uint32
	tweak    uint32
}

// mutBlockTxn is the mutable container for a BeginBuildBlockTxn scope.
type mutBlockTxn struct {
	blockHash chainHash
	indexes   []uint32
	txs       []*wire.MsgTx
}

// headerValue is the compiler's native Header representation.
type headerValue struct {
	prev    chainHash
	merkle  chainHash
	nonce   uint32
	bits    uint32
	time    uint32
	version int32
	height  uint32
}

// cell is one variable-table slot: exactly one of these fields is
// meaningful, selected by Type, which mirrors the IR variable's own static
// type. This is a tagged-sum / parallel-fields layout in place of a
// type-erased Box<dyn Any> table: dispatch always goes through Type, never
// a runtime type assertion.
type cell struct {
	Type ir.Variable

	Bytes       []byte
	MsgType     [12]byte
	NodeIndex   uint32
	ConnIndex   uint32
	ConnType    ir.ConnectionType
	Duration    uint64
	Time        uint32
	Size        uint64
	BlockHeight uint32
	CFilter     uint8
	PrivKey     *btcec.PrivateKey
	SigHash     uint32
	Amount      int64
	TxVersion   int32
	BlockVer    int32
	LockTime    uint32
	Sequence    uint32
	Nonce       uint32

	Scripts *Scripts
	Txo     *Txo
	Header  *headerValue
	Block   *wire.MsgBlock

	MutTx            *mutTx // shared across VarMutTx/VarMutTxInputs/VarMutTxOutputs cells of the same tx
	ConstTx          *wire.MsgTx
	ConstTxInputs    []*wire.TxIn  // inert snapshot; EndBuildTx reads the live *mutTx instead
	ConstTxOutputs   []*wire.TxOut
	MutBlockTxns     *mutBlockTxns
	ConstBlockTxns   *mutBlockTxns
	MutInventory     *mutInventory
	ConstInventory   *mutInventory
	MutAddrList      *mutAddrList
	ConstAddrList    *mutAddrList
	MutWitnessStack  *mutWitnessStack
	ConstWitnessStack *mutWitnessStack
	MutFilter        *mutFilter
	ConstFilter      *mutFilter
	MutCoinbaseTx    *mutTx // shared across VarMutCoinbaseTx/VarMutCoinbaseTxOutputs cells
	ConstCoinbaseTx  *wire.MsgTx
	ConstCoinbaseTxOutputs []*wire.TxOut
	MutBlockTxn      *mutBlockTxn
	ConstBlockTxn    *mutBlockTxn
}
