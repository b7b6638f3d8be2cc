package metadata

import "testing"

func TestNthMostRecentBlockWalksInReverse(t *testing.T) {
	var m PerTestcaseMetadata
	m.RecordBlock(RecentBlock{Hash: [32]byte{1}})
	m.RecordBlock(RecentBlock{Hash: [32]byte{2}})
	m.RecordBlock(RecentBlock{Hash: [32]byte{3}})

	tip, ok := m.NthMostRecentBlock(0)
	if !ok || tip.Hash[0] != 3 {
		t.Fatalf("expected the latest block (hash 3) at n=0, got %+v ok=%v", tip, ok)
	}
	prev, ok := m.NthMostRecentBlock(1)
	if !ok || prev.Hash[0] != 2 {
		t.Fatalf("expected the second-latest block (hash 2) at n=1, got %+v ok=%v", prev, ok)
	}
	if _, ok := m.NthMostRecentBlock(3); ok {
		t.Fatalf("expected n=3 to be out of range with only 3 recorded blocks")
	}
}

func TestNthMostRecentBlockOnEmptyMetadata(t *testing.T) {
	var m PerTestcaseMetadata
	if _, ok := m.NthMostRecentBlock(0); ok {
		t.Fatalf("expected no recent block on fresh metadata")
	}
}

func TestPredicateTxoFindsFirstMatch(t *testing.T) {
	var m PerTestcaseMetadata
	m.Mempool = []MempoolTxo{
		{Txid: [32]byte{1}, Depends: []int{}, SpentBy: nil},
		{Txid: [32]byte{2}, Depends: nil, SpentBy: []int{0}},
	}

	match, ok := m.PredicateTxo(HasSpender)
	if !ok || match.Txid[0] != 2 {
		t.Fatalf("expected to find the spent txo (txid 2), got %+v ok=%v", match, ok)
	}

	root, ok := m.PredicateTxo(NoDependencies)
	if !ok || root.Txid[0] != 1 {
		t.Fatalf("expected to find the dependency-free txo (txid 1), got %+v ok=%v", root, ok)
	}
}

func TestPredicateTxoReportsNoMatch(t *testing.T) {
	var m PerTestcaseMetadata
	m.Mempool = []MempoolTxo{{Txid: [32]byte{1}}}
	if _, ok := m.PredicateTxo(HasSpender); ok {
		t.Fatalf("expected no match: no txo in the mempool has a recorded spender")
	}
}

func TestRecordBlockTxnRequestAppends(t *testing.T) {
	var m PerTestcaseMetadata
	m.RecordBlockTxnRequest(GetBlockTxnRequest{TriggeringInstruction: 4, ConnectionVar: 1})
	m.RecordBlockTxnRequest(GetBlockTxnRequest{TriggeringInstruction: 9, ConnectionVar: 2})

	if len(m.BlockTxnRequests) != 2 {
		t.Fatalf("expected 2 recorded requests, got %d", len(m.BlockTxnRequests))
	}
	if m.BlockTxnRequests[1].TriggeringInstruction != 9 {
		t.Fatalf("expected the second request's trigger at instruction 9, got %d", m.BlockTxnRequests[1].TriggeringInstruction)
	}
}
