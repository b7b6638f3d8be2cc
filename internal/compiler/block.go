package compiler

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// witnessReservedValue is BIP141's all-zero placeholder committed alongside
// the witness merkle root inside the coinbase's commitment output.
var witnessReservedValue [32]byte

// buildBlock implements BuildBlock: assembles a coinbase plus the block's
// transaction list into a full wire.MsgBlock, fixes up the
// coinbase's BIP141 witness commitment, and searches for a nonce the
// compiler's own reduced proof-of-work predicate accepts. It returns both
// the resulting on-chain Header (for chaining a follow-up BuildBlock) and
// the block itself.
func (c *Compiler) buildBlock(index int, instr ir.Instruction) (*headerValue, *wire.MsgBlock, error) {
	coinbaseCell, err := c.input(index, instr, 0)
	if err != nil {
		return nil, nil, err
	}
	prevHeaderCell, err := c.input(index, instr, 1)
	if err != nil {
		return nil, nil, err
	}
	timeCell, err := c.input(index, instr, 2)
	if err != nil {
		return nil, nil, err
	}
	blockVerCell, err := c.input(index, instr, 3)
	if err != nil {
		return nil, nil, err
	}
	blockTxnsCell, err := c.input(index, instr, 4)
	if err != nil {
		return nil, nil, err
	}

	coinbase := coinbaseCell.ConstCoinbaseTx.Copy()
	txs := append([]*wire.MsgTx{coinbase}, blockTxnsCell.ConstBlockTxns.txs...)

	commitment := witnessMerkleCommitment(txs)
	commitScript, _ := commitmentScript(commitment)
	coinbase.TxOut = append(coinbase.TxOut, &wire.TxOut{Value: 0, PkScript: commitScript})
	txs[0] = coinbase

	merkleRoot := computeMerkleRoot(txIDs(txs))

	prev := prevHeaderCell.Header
	header := &headerValue{
		prev:    prev.blockHash(),
		merkle:  merkleRoot,
		bits:    prev.bits,
		time:    timeCell.Time,
		version: blockVerCell.BlockVer,
		height:  prev.height + 1,
	}

	nonce, err := searchNonce(header)
	if err != nil {
		return nil, nil, newErr(index, ErrMisc, "%v", err)
	}
	header.nonce = nonce

	block := &wire.MsgBlock{Header: *header.toWire(), Transactions: txs}
	return header, block, nil
}

// blockHash computes the header's own hash, i.e. the hash its child block
// will reference as PrevBlock.
func (h *headerValue) blockHash() chainHash {
	return chainHash(h.toWire().BlockHash())
}

func txIDs(txs []*wire.MsgTx) []chainHash {
	out := make([]chainHash, len(txs))
	for i, tx := range txs {
		out[i] = chainHash(tx.TxHash())
	}
	return out
}

func wtxIDs(txs []*wire.MsgTx) []chainHash {
	out := make([]chainHash, len(txs))
	for i, tx := range txs {
		if i == 0 {
			continue // coinbase wtxid is defined as all-zero (BIP141)
		}
		out[i] = chainHash(tx.WitnessHash())
	}
	return out
}

// computeMerkleRoot implements Bitcoin's pairwise sha256d merkle tree,
// duplicating the final element of an odd-length level.
func computeMerkleRoot(leaves []chainHash) chainHash {
	if len(leaves) == 0 {
		return chainHash{}
	}
	level := leaves
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainHash, len(level)/2)
		for i := range next {
			next[i] = sha256d(append(append([]byte{}, level[2*i][:]...), level[2*i+1][:]...))
		}
		level = next
	}
	return level[0]
}

func sha256d(data []byte) chainHash {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second
}

func witnessMerkleCommitment(txs []*wire.MsgTx) chainHash {
	root := computeMerkleRoot(wtxIDs(txs))
	return sha256d(append(append([]byte{}, root[:]...), witnessReservedValue[:]...))
}

func commitmentScript(commitment chainHash) ([]byte, error) {
	payload := append(append([]byte{}, witnessCommitmentHeader[:]...), commitment[:]...)
	return txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).AddData(payload).Script()
}

// searchNonce tries nonces in order until the compiler's reduced
// proof-of-work predicate accepts the resulting header hash, or the
// iteration cap is reached: BuildBlock must always terminate, so an
// exhausted search returns the last nonce tried rather than erroring.
func searchNonce(h *headerValue) (uint32, error) {
	for nonce := uint32(0); nonce < powIterationCap; nonce++ {
		h.nonce = nonce
		hash := h.toWire().BlockHash()
		if reducedPowOK(hash) {
			return nonce, nil
		}
	}
	return powIterationCap - 1, nil
}

// reducedPowOK is the compiler's easy stand-in for real consensus
// proof-of-work: it accepts a hash whose most-significant byte (chainhash's
// byte order is reversed, so index 31) is zero, roughly a 1-in-256 chance
// per nonce, cheap enough to satisfy within powIterationCap every time.
func reducedPowOK(hash chainhash.Hash) bool {
	return hash[31] == 0
}
