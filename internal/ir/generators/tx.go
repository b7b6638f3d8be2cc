package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// txoScriptKinds are the pre-seeded script shapes LoadTxo's TxoLiteral can
// name; the compiler resolves each to a stand-in scriptPubKey it knows how
// to spend without holding the real signing key (internal/compiler's
// preseededScript).
var txoScriptKinds = []string{"p2wpkh", "p2pkh", "anyone-can-spend"}

func randTxoLiteral(rng *rand.Rand) ir.TxoLiteral {
	var txid [32]byte
	rng.Read(txid[:])
	return ir.TxoLiteral{
		Txid: txid, Vout: uint32(rng.Intn(4)),
		Amount: int64(10_000 + rng.Intn(10_000_000)),
		ScriptKind: txoScriptKinds[rng.Intn(len(txoScriptKinds))],
	}
}

// loadRandomTxo loads a TxoLiteral as a fresh VarTxo: from metadata's
// observed mempool when available (so chain generators probe real node
// state), otherwise a synthetic one standing in for the harness's pre-seeded
// genesis UTXO set.
func loadRandomTxo(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) builder.IndexedVariable {
	if meta != nil && len(meta.Mempool) > 0 {
		m := meta.Mempool[rng.Intn(len(meta.Mempool))]
		lit := ir.TxoLiteral{
			Txid: m.Txid, Vout: m.Vout,
			Amount: int64(10_000 + rng.Intn(10_000_000)),
			ScriptKind: txoScriptKinds[rng.Intn(len(txoScriptKinds))],
		}
		return b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTxo, Txo: lit})
	}
	return b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTxo, Txo: randTxoLiteral(rng)})
}

// buildP2PKHScripts appends LoadPrivateKey+BuildPayToPubKeyHash, the default
// spendable output shape every tx generator below uses unless it has a
// specific reason to want something else.
func buildP2PKHScripts(b *builder.ProgramBuilder, rng *rand.Rand) builder.IndexedVariable {
	var priv [32]byte
	rng.Read(priv[:])
	privVar := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadPrivateKey, PrivateKey: priv})
	return b.ForceAppendExpectOutput([]int{privVar.Index}, ir.Operation{Kind: ir.OpBuildPayToPubKeyHash})
}

// buildTxSpending assembles a complete BeginBuildTx/.../EndBuildTx scope
// spending the given Txo variables into numOutputs fresh P2PKH outputs, and
// returns the resulting ConstTx variable.
func buildTxSpending(b *builder.ProgramBuilder, rng *rand.Rand, txos []builder.IndexedVariable, numOutputs int) builder.IndexedVariable {
	txInner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildTx})

	inputsInner := b.ForceAppendExpectOutput([]int{txInner.Index}, ir.Operation{Kind: ir.OpBeginBuildTxInputs})
	for _, txo := range txos {
		b.ForceAppend([]int{inputsInner.Index, txo.Index}, ir.Operation{Kind: ir.OpAddTxInput})
	}
	b.ForceAppendExpectOutput([]int{inputsInner.Index}, ir.Operation{Kind: ir.OpEndBuildTxInputs})

	outputsInner := b.ForceAppendExpectOutput([]int{txInner.Index}, ir.Operation{Kind: ir.OpBeginBuildTxOutputs})
	for i := 0; i < numOutputs; i++ {
		scripts := buildP2PKHScripts(b, rng)
		b.ForceAppend([]int{outputsInner.Index, scripts.Index}, ir.Operation{Kind: ir.OpAddTxOutput})
	}
	b.ForceAppendExpectOutput([]int{outputsInner.Index}, ir.Operation{Kind: ir.OpEndBuildTxOutputs})

	return b.ForceAppendExpectOutput([]int{txInner.Index}, ir.Operation{Kind: ir.OpEndBuildTx})
}

func sendTx(b *builder.ProgramBuilder, rng *rand.Rand, tx builder.IndexedVariable) {
	conn := randConnOrNew(b, rng)
	kind := ir.OpSendTx
	if rng.Intn(5) == 0 {
		kind = ir.OpSendTxNoWit
	}
	b.ForceAppend([]int{conn.Index, tx.Index}, ir.Operation{Kind: kind})
}

// TxoGenerator loads a standalone pre-seeded Txo without spending it yet,
// giving later generators (AddTxInput splices, filter generators) a Txo
// variable to reach for.
type TxoGenerator struct{}

func (TxoGenerator) Name() string                           { return "Txo" }
func (TxoGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (TxoGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	loadRandomTxo(b, rng, meta)
	return nil
}

// SingleTxGenerator builds and sends one ordinary transaction spending a
// single random unspent Txo into one to three fresh outputs.
type SingleTxGenerator struct{}

func (SingleTxGenerator) Name() string                           { return "SingleTx" }
func (SingleTxGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (SingleTxGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	txo := loadRandomTxo(b, rng, meta)
	tx := buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1+rng.Intn(3))
	sendTx(b, rng, tx)
	return nil
}

// LargeTxGenerator spends several unspent Txos from the current scope (or
// freshly loaded ones) into many outputs at once, probing a node's handling
// of wide transactions.
type LargeTxGenerator struct{}

func (LargeTxGenerator) Name() string                           { return "LargeTx" }
func (LargeTxGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (LargeTxGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	existing := b.GetRandomUtxos(rng)
	txos := existing
	for len(txos) < 4 {
		txos = append(txos, loadRandomTxo(b, rng, meta))
	}
	tx := buildTxSpending(b, rng, txos, 8+rng.Intn(16))
	sendTx(b, rng, tx)
	return nil
}

// OneParentOneChildTxGenerator targets a known mempool dependency edge: it
// picks a TXO with no dependencies of its own (a safe root) and, when one of
// its recorded children exists, builds two probe transactions — one
// re-spending the parent (an RBF/double-spend probe) and one spending the
// child (extends the existing package by one more hop).
type OneParentOneChildTxGenerator struct{}

func (OneParentOneChildTxGenerator) Name() string { return "OneParentOneChildTx" }
func (OneParentOneChildTxGenerator) RequestedContext() ir.InstructionContext {
	return ir.ContextGlobal
}
func (OneParentOneChildTxGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	if meta == nil || len(meta.Mempool) == 0 {
		txo := loadRandomTxo(b, rng, meta)
		sendTx(b, rng, buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1))
		return nil
	}
	parent, ok := meta.PredicateTxo(metadata.NoDependencies)
	if !ok {
		parent = meta.Mempool[rng.Intn(len(meta.Mempool))]
	}
	parentTxo := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTxo, Txo: ir.TxoLiteral{
		Txid: parent.Txid, Vout: parent.Vout, Amount: int64(10_000 + rng.Intn(1_000_000)),
		ScriptKind: txoScriptKinds[rng.Intn(len(txoScriptKinds))],
	}})
	sendTx(b, rng, buildTxSpending(b, rng, []builder.IndexedVariable{parentTxo}, 1))

	if len(parent.SpentBy) == 0 || len(parent.SpentBy) > len(meta.Mempool) {
		return nil
	}
	child := meta.Mempool[parent.SpentBy[0]%len(meta.Mempool)]
	childTxo := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTxo, Txo: ir.TxoLiteral{
		Txid: child.Txid, Vout: child.Vout, Amount: int64(10_000 + rng.Intn(1_000_000)),
		ScriptKind: txoScriptKinds[rng.Intn(len(txoScriptKinds))],
	}})
	sendTx(b, rng, buildTxSpending(b, rng, []builder.IndexedVariable{childTxo}, 1))
	return nil
}

// LongChainTxGenerator builds several transactions in sequence, each
// spending a distinct pre-seeded/mempool Txo, simulating a burst of
// unconfirmed transactions landing back to back (mempool chain-depth
// probing without relying on an in-program "spend what I just built"
// operation, which the closed catalogue does not expose).
type LongChainTxGenerator struct{}

func (LongChainTxGenerator) Name() string                           { return "LongChainTx" }
func (LongChainTxGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (LongChainTxGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	depth := 3 + rng.Intn(5)
	for i := 0; i < depth; i++ {
		txo := loadRandomTxo(b, rng, meta)
		tx := buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1)
		sendTx(b, rng, tx)
	}
	return nil
}

// CoinbaseTxGenerator builds a coinbase transaction (BuildCoinbaseTxInput
// fed by a LoadBlockHeight, one or more reward outputs) for later use by
// BuildBlock; it does not send the coinbase on its own, since a coinbase
// only ever travels inside a block.
type CoinbaseTxGenerator struct{}

func (CoinbaseTxGenerator) Name() string                           { return "CoinbaseTx" }
func (CoinbaseTxGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (CoinbaseTxGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	height := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBlockHeight, BlockHeight: uint32(1 + rng.Intn(1_000_000))})
	// BuildCoinbaseTxInput's Scripts output is wired to the owning coinbase
	// tx by the compiler's program-order convention (internal/compiler's
	// pendingCoinbaseScriptSig), not an explicit input here, so its result
	// variable is never referenced.
	b.ForceAppendExpectOutput([]int{height.Index}, ir.Operation{Kind: ir.OpBuildCoinbaseTxInput})

	cbInner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpBeginBuildCoinbaseTx})
	outputsInner := b.ForceAppendExpectOutput([]int{cbInner.Index}, ir.Operation{Kind: ir.OpBeginBuildCoinbaseTxOutputs})
	scripts := buildP2PKHScripts(b, rng)
	b.ForceAppend([]int{outputsInner.Index, scripts.Index}, ir.Operation{Kind: ir.OpAddCoinbaseTxOutput})
	b.ForceAppendExpectOutput([]int{outputsInner.Index}, ir.Operation{Kind: ir.OpEndBuildCoinbaseTxOutputs})

	b.ForceAppendExpectOutput([]int{cbInner.Index}, ir.Operation{Kind: ir.OpEndBuildCoinbaseTx})
	return nil
}

// PredicateTxGenerator selects a mempool Txo satisfying a metadata predicate
// (HasSpender biases toward a double-spend probe target, NoDependencies
// toward a safe new chain root) and spends it.
type PredicateTxGenerator struct{}

func (PredicateTxGenerator) Name() string                           { return "PredicateTx" }
func (PredicateTxGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (PredicateTxGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, meta *metadata.PerTestcaseMetadata) error {
	if meta == nil || len(meta.Mempool) == 0 {
		txo := loadRandomTxo(b, rng, meta)
		sendTx(b, rng, buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1))
		return nil
	}
	pred := metadata.NoDependencies
	if rng.Intn(2) == 0 {
		pred = metadata.HasSpender
	}
	m, found := meta.PredicateTxo(pred)
	if !found {
		m = meta.Mempool[rng.Intn(len(meta.Mempool))]
	}
	txo := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadTxo, Txo: ir.TxoLiteral{
		Txid: m.Txid, Vout: m.Vout, Amount: int64(10_000 + rng.Intn(1_000_000)),
		ScriptKind: txoScriptKinds[rng.Intn(len(txoScriptKinds))],
	}})
	sendTx(b, rng, buildTxSpending(b, rng, []builder.IndexedVariable{txo}, 1))
	return nil
}
