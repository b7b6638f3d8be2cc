// Package metadata implements the per-testcase runtime side channel:
// observations the harness records while executing a compiled program,
// consulted by generators/mutators on the next iteration.
package metadata

// GetBlockTxnRequest records one getblocktxn the node sent back in response
// to a compact block, so BlockTxnMutator can build a matching blocktxn
// response.
type GetBlockTxnRequest struct {
	TriggeringInstruction int
	ConnectionVar         int
	BlockVar              int
	TxIndicesVar          int
}

// DefiningSite names the instruction that produced a value, for generators
// that need to splice immediately after it.
type DefiningSite struct {
	VariableIndex    int
	InstructionIndex int
}

// RecentBlock records a block hash the harness observed, plus — if this
// program itself built that block — where.
type RecentBlock struct {
	Hash          [32]byte
	DefiningBlock *DefiningSite
}

// MempoolTxo records one observed mempool output's dependency relations:
// other TXOs it spends from (Depends) and TXOs that spend it (SpentBy), plus
// where it was defined in program order.
type MempoolTxo struct {
	Txid     [32]byte
	Vout     uint32
	Defining DefiningSite
	Depends  []int // indices into the owning PerTestcaseMetadata.Mempool slice
	SpentBy  []int
}

// PerTestcaseMetadata is owned by the fuzzer front-end and passed by
// reference into generators/mutators; it is never global or interior-
// mutable — a generator that wants to record its own bookkeeping takes a
// pointer and mutates its own fields only.
type PerTestcaseMetadata struct {
	BlockTxnRequests []GetBlockTxnRequest
	RecentBlocks     []RecentBlock
	Mempool          []MempoolTxo
}

// RecordBlockTxnRequest appends an observed getblocktxn.
func (m *PerTestcaseMetadata) RecordBlockTxnRequest(r GetBlockTxnRequest) {
	m.BlockTxnRequests = append(m.BlockTxnRequests, r)
}

// RecordBlock appends an observed block hash.
func (m *PerTestcaseMetadata) RecordBlock(r RecentBlock) {
	m.RecentBlocks = append(m.RecentBlocks, r)
}

// NthMostRecentBlock returns the nth most recently recorded block (0 =
// latest), mirroring the reverse-scan `recent_blocks.iter().rev().nth(n)`
// used by TipBlockGenerator/select_header_nth.
func (m *PerTestcaseMetadata) NthMostRecentBlock(n int) (RecentBlock, bool) {
	idx := len(m.RecentBlocks) - 1 - n
	if idx < 0 || idx >= len(m.RecentBlocks) {
		return RecentBlock{}, false
	}
	return m.RecentBlocks[idx], true
}

// PredicateTxo finds a mempool TXO matching pred, used by predicate-tx
// generators (e.g. "has a spender" for double-spend probes, "no
// dependencies" for chain-spend probes).
func (m *PerTestcaseMetadata) PredicateTxo(pred func(MempoolTxo) bool) (MempoolTxo, bool) {
	for _, t := range m.Mempool {
		if pred(t) {
			return t, true
		}
	}
	return MempoolTxo{}, false
}

// HasSpender is a ready-made predicate: the TXO has at least one recorded
// spend (double-spend probe target).
func HasSpender(t MempoolTxo) bool { return len(t.SpentBy) > 0 }

// NoDependencies is a ready-made predicate: the TXO spends nothing else
// still in the mempool (safe root for a chain-spend probe).
func NoDependencies(t MempoolTxo) bool { return len(t.Depends) == 0 }
