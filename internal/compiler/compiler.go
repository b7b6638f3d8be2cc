package compiler

import (
	"bytes"
	"crypto/sha256"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

func timeFromUnix(t uint32) time.Time { return time.Unix(int64(t), 0).UTC() }

// witnessCommitmentHeader is BIP141's fixed 4-byte marker prefixing the
// witness root inside the coinbase's commitment output.
var witnessCommitmentHeader = [4]byte{0xaa, 0x21, 0xa9, 0xed}

// txFeeSats is the flat fee AddTxOutput's value-assignment policy reserves
// out of a transaction's total input value before splitting the remainder
// evenly across its outputs ("fee-capping"; the exact constant is an
// implementation choice).
const txFeeSats = 1000

// coinbaseReward is the block subsidy BuildBlock's synthesised coinbase
// output carries; regtest-scale, since the compiled program is consumed by
// a harness that never checks subsidy halving against real chain height.
const coinbaseReward = 50 * 100_000_000

// powIterationCap bounds BuildBlock's nonce search: a header that can't
// satisfy even the reduced target within this many tries is compiled with
// its last-tried nonce rather than looping forever, since Compile must
// always terminate.
const powIterationCap = 1 << 20

// Compiler walks a validated Program in instruction order, maintaining a
// variable table of cells and emitting CompiledActions as Send*/SetTime
// instructions execute.
type Compiler struct {
	cells []cell
	meta  *metadata.PerTestcaseMetadata
	ctx   ir.ProgramContext
	time  uint32

	actions []CompiledAction
	dialed  map[uint32]bool

	// pendingCoinbaseScriptSig holds the most recently built
	// BuildCoinbaseTxInput result, consumed by the next EndBuildCoinbaseTx
	// in the same scope — the catalogue has no direct input slot wiring a
	// coinbase scriptSig into its transaction, so the compiler links them
	// by program order instead.
	pendingCoinbaseScriptSig *Scripts

	// lastBlockHash is the most recently compiled block's hash. The
	// catalogue gives BeginBuildBlockTxn no explicit input wiring a target
	// block into its response, so the compiler attaches the most recent one
	// by program order, matching how a real fuzzing run only ever builds a
	// blocktxn response right after the compact block it answers.
	lastBlockHash chainHash
}

// Compile lowers a validated program into its action sequence.
func Compile(p *ir.Program, meta *metadata.PerTestcaseMetadata) (*CompiledProgram, error) {
	c := &Compiler{
		cells:  make([]cell, 0, p.VariableCount()),
		meta:   meta,
		ctx:    p.Context,
		time:   uint32(p.Context.Timestamp),
		dialed: make(map[uint32]bool),
	}
	for idx, instr := range p.Instructions {
		if err := c.step(idx, instr); err != nil {
			return nil, err
		}
	}
	size := 0
	for _, a := range c.actions {
		size += len(a.Payload)
	}
	if size > MaxCompiledSize {
		return nil, newErr(len(p.Instructions), ErrPayloadTooLarge, "compiled payload %d exceeds cap %d", size, MaxCompiledSize)
	}
	return &CompiledProgram{Context: p.Context, Actions: c.actions}, nil
}

func (c *Compiler) push(cl cell) int {
	idx := len(c.cells)
	c.cells = append(c.cells, cl)
	return idx
}

func (c *Compiler) cellAt(index, varIdx int) (*cell, error) {
	if varIdx < 0 || varIdx >= len(c.cells) {
		return nil, newErr(index, ErrVariableNotFound, "variable %d out of range", varIdx)
	}
	return &c.cells[varIdx], nil
}

func (c *Compiler) input(index int, instr ir.Instruction, slot int) (*cell, error) {
	return c.cellAt(index, instr.Inputs[slot])
}

func (c *Compiler) ensureDialed(conn uint32) {
	if c.dialed[conn] {
		return
	}
	c.dialed[conn] = true
	c.actions = append(c.actions, CompiledAction{Kind: ActionConnect, Connection: int(conn)})
}

func (c *Compiler) emitRaw(conn uint32, command string, payload []byte) {
	c.ensureDialed(conn)
	c.actions = append(c.actions, CompiledAction{
		Kind: ActionSendRawMessage, Connection: int(conn), Command: command, Payload: payload,
	})
}

func wireEncode(m wire.Message) []byte {
	var buf bytes.Buffer
	_ = m.BtcEncode(&buf, wire.ProtocolVersion, wire.WitnessEncoding)
	return buf.Bytes()
}

// step executes one instruction: it resolves inputs, performs the
// operation's effect, and appends this instruction's outputs (regular then
// inner, matching builder.Append's append order) to the cell table.
func (c *Compiler) step(index int, instr ir.Instruction) error {
	op := instr.Operation
	var regular []cell
	var inner *cell

	switch op.Kind {
	case ir.OpNop:
		for i := 0; i < op.NopOutputs; i++ {
			regular = append(regular, cell{})
		}
		if op.NopInnerOutputs > 0 {
			inner = &cell{}
		}

	// ---- Load* literals ----
	case ir.OpLoadBytes:
		regular = []cell{{Type: ir.VarBytes, Bytes: op.Bytes}}
	case ir.OpLoadMsgType:
		regular = []cell{{Type: ir.VarMsgType, MsgType: op.MsgType}}
	case ir.OpLoadNode:
		regular = []cell{{Type: ir.VarNode, NodeIndex: op.NodeIndex}}
	case ir.OpLoadConnection:
		regular = []cell{{Type: ir.VarConnection, ConnIndex: op.ConnIndex}}
	case ir.OpLoadConnectionType:
		regular = []cell{{Type: ir.VarConnectionType, ConnType: op.ConnType}}
	case ir.OpLoadDuration:
		regular = []cell{{Type: ir.VarDuration, Duration: op.Duration}}
	case ir.OpLoadAddr:
		regular = []cell{{Type: ir.VarBytes, Bytes: encodeAddrLiteral(op.Addr)}}
	case ir.OpLoadTime:
		regular = []cell{{Type: ir.VarTime, Time: op.Time}}
	case ir.OpLoadSize:
		regular = []cell{{Type: ir.VarSize, Size: op.Size}}
	case ir.OpLoadBlockHeight:
		regular = []cell{{Type: ir.VarBlockHeight, BlockHeight: op.BlockHeight}}
	case ir.OpLoadCompactFilterType:
		regular = []cell{{Type: ir.VarCompactFilterType, CFilter: op.CFilterType}}
	case ir.OpLoadPrivateKey:
		priv, _ := btcec.PrivKeyFromBytes(op.PrivateKey[:])
		regular = []cell{{Type: ir.VarPrivateKey, PrivKey: priv}}
	case ir.OpLoadSigHashFlags:
		regular = []cell{{Type: ir.VarSigHashFlags, SigHash: op.SigHashFlags}}
	case ir.OpLoadAmount:
		regular = []cell{{Type: ir.VarConstAmount, Amount: op.Amount}}
	case ir.OpLoadTxVersion:
		regular = []cell{{Type: ir.VarTxVersion, TxVersion: op.TxVersion}}
	case ir.OpLoadBlockVersion:
		regular = []cell{{Type: ir.VarBlockVersion, BlockVer: op.BlockVersion}}
	case ir.OpLoadLockTime:
		regular = []cell{{Type: ir.VarLockTime, LockTime: op.LockTime}}
	case ir.OpLoadSequence:
		regular = []cell{{Type: ir.VarSequence, Sequence: op.Sequence}}
	case ir.OpLoadNonce:
		regular = []cell{{Type: ir.VarNonce, Nonce: op.Nonce}}
	case ir.OpLoadTxo:
		regular = []cell{{Type: ir.VarTxo, Txo: &Txo{
			Txid: op.Txo.Txid, Vout: op.Txo.Vout, Amount: op.Txo.Amount,
			Script: preseededScript(op.Txo.ScriptKind),
		}}}
	case ir.OpLoadHeader:
		regular = []cell{{Type: ir.VarHeader, Header: &headerValue{
			prev: op.Header.Prev, merkle: op.Header.MerkleRoot, nonce: op.Header.Nonce,
			bits: op.Header.Bits, time: op.Header.Time, version: op.Header.Version,
			height: op.Header.Height,
		}}}
	case ir.OpLoadFilterLoad:
		fl := &wire.MsgFilterLoad{Filter: op.Filter.Data, HashFuncs: op.Filter.NHashFns,
			Tweak: op.Filter.Tweak, Flags: wire.BloomUpdateType(op.Filter.Flags)}
		regular = []cell{{Type: ir.VarBytes, Bytes: wireEncode(fl)}}
	case ir.OpLoadFilterAdd:
		regular = []cell{{Type: ir.VarBytes, Bytes: op.Filter.Data}}

	// ---- Script builders ----
	case ir.OpBuildPayToPubKey, ir.OpBuildPayToPubKeyHash, ir.OpBuildPayToWitnessPubKeyHash,
		ir.OpBuildPayToWitnessScriptHash, ir.OpBuildPayToScriptHash, ir.OpBuildPayToTaproot,
		ir.OpBuildPayToAnchor, ir.OpBuildOpReturnScripts, ir.OpBuildRawScripts:
		s, err := c.buildScripts(index, instr)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarScripts, Scripts: s}}

	case ir.OpBuildTaprootTree:
		priv, err := c.inputPrivateKey(index, instr, 0)
		if err != nil {
			return err
		}
		outputKey, err := buildTaprootTree(priv)
		if err != nil {
			return newErr(index, ErrMisc, "taproot tree: %v", err)
		}
		spk, _ := txscript.NewScriptBuilder().AddOp(txscript.OP_1).AddData(outputKey).Script()
		regular = []cell{{Type: ir.VarScripts, Scripts: &Scripts{ScriptPubKey: spk}}}

	case ir.OpBuildCoinbaseTxInput:
		heightCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		scriptSig, err := txscript.NewScriptBuilder().AddInt64(int64(heightCell.BlockHeight)).Script()
		if err != nil {
			return newErr(index, ErrMisc, "coinbase scriptsig: %v", err)
		}
		s := &Scripts{ScriptSig: scriptSig}
		c.pendingCoinbaseScriptSig = s
		regular = []cell{{Type: ir.VarScripts, Scripts: s}}

	// ---- Transaction building ----
	case ir.OpBeginBuildTx:
		inner = &cell{Type: ir.VarMutTx, MutTx: &mutTx{version: 2}}
	case ir.OpBeginBuildCoinbaseTx:
		inner = &cell{Type: ir.VarMutCoinbaseTx, MutCoinbaseTx: &mutTx{version: 2}}

	case ir.OpBeginBuildTxInputs:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		inner = &cell{Type: ir.VarMutTxInputs, MutTx: in.MutTx}
	case ir.OpBeginBuildTxOutputs:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		inner = &cell{Type: ir.VarMutTxOutputs, MutTx: in.MutTx}
	case ir.OpBeginBuildCoinbaseTxOutputs:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		inner = &cell{Type: ir.VarMutCoinbaseTxOutputs, MutCoinbaseTx: in.MutCoinbaseTx}

	case ir.OpEndBuildTxInputs:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstTxInputs, ConstTxInputs: append([]*wire.TxIn(nil), in.MutTx.inputs...)}}
	case ir.OpEndBuildTxOutputs:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstTxOutputs, ConstTxOutputs: append([]*wire.TxOut(nil), in.MutTx.outputs...)}}
	case ir.OpEndBuildCoinbaseTxOutputs:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstCoinbaseTxOutputs, ConstCoinbaseTxOutputs: append([]*wire.TxOut(nil), in.MutCoinbaseTx.outputs...)}}

	case ir.OpEndBuildTx:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		tx, err := c.finalizeTx(index, in.MutTx, false)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstTx, ConstTx: tx}}

	case ir.OpEndBuildCoinbaseTx:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		tx, err := c.finalizeTx(index, in.MutCoinbaseTx, true)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstCoinbaseTx, ConstCoinbaseTx: tx}}

	case ir.OpAddTxInput:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		txoCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		txo := txoCell.Txo
		tx := containerCell.MutTx
		tx.inputs = append(tx.inputs, &wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash(txo.Txid), Index: txo.Vout},
			Sequence:         wire.MaxTxInSequenceNum,
		})
		tx.inputTxos = append(tx.inputTxos, *txo)
		tx.totalInput += txo.Amount

	case ir.OpAddTxOutput:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		scriptsCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		containerCell.MutTx.outputs = append(containerCell.MutTx.outputs,
			&wire.TxOut{PkScript: scriptsCell.Scripts.ScriptPubKey})

	case ir.OpAddCoinbaseTxOutput:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		scriptsCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		containerCell.MutCoinbaseTx.outputs = append(containerCell.MutCoinbaseTx.outputs,
			&wire.TxOut{PkScript: scriptsCell.Scripts.ScriptPubKey})

	// ---- Witness stack ----
	case ir.OpBeginWitnessStack:
		inner = &cell{Type: ir.VarMutWitnessStack, MutWitnessStack: &mutWitnessStack{}}
	case ir.OpEndWitnessStack:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstWitnessStack, ConstWitnessStack: in.MutWitnessStack}}
	case ir.OpAddWitness:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		bytesCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		containerCell.MutWitnessStack.stack = append(containerCell.MutWitnessStack.stack, bytesCell.Bytes)

	// ---- Inventory ----
	case ir.OpBeginBuildInventory:
		inner = &cell{Type: ir.VarMutInventory, MutInventory: &mutInventory{}}
	case ir.OpEndBuildInventory:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstInventory, ConstInventory: in.MutInventory}}
	case ir.OpAddTxidInv, ir.OpAddWtxidInv, ir.OpAddTxidWithWitnessInv:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		txCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		invType := wire.InvTypeTx
		if op.Kind == ir.OpAddWtxidInv {
			invType = wire.InvTypeWitnessTx
		} else if op.Kind == ir.OpAddTxidWithWitnessInv {
			invType = wire.InvTypeWitnessTx
		}
		h := txCell.ConstTx.TxHash()
		containerCell.MutInventory.items = append(containerCell.MutInventory.items, wire.NewInvVect(invType, &h))
	case ir.OpAddBlockInv, ir.OpAddBlockWithWitnessInv, ir.OpAddCompactBlockInv, ir.OpAddFilteredBlockInv:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		blockCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		invType := wire.InvTypeBlock
		switch op.Kind {
		case ir.OpAddBlockWithWitnessInv:
			invType = wire.InvTypeWitnessBlock
		case ir.OpAddCompactBlockInv:
			invType = wire.InvTypeFilteredBlock // closest wire constant analogue available
		case ir.OpAddFilteredBlockInv:
			invType = wire.InvTypeFilteredBlock
		}
		h := blockCell.Block.BlockHash()
		containerCell.MutInventory.items = append(containerCell.MutInventory.items, wire.NewInvVect(invType, &h))

	// ---- Addr lists ----
	case ir.OpBeginBuildAddrList:
		inner = &cell{Type: ir.VarMutAddrList, MutAddrList: &mutAddrList{}}
	case ir.OpBeginBuildAddrListV2:
		inner = &cell{Type: ir.VarMutAddrListV2, MutAddrList: &mutAddrList{v2: true}}
	case ir.OpEndBuildAddrList, ir.OpEndBuildAddrListV2:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		t := ir.VarConstAddrList
		if op.Kind == ir.OpEndBuildAddrListV2 {
			t = ir.VarConstAddrListV2
		}
		regular = []cell{{Type: t, ConstAddrList: in.MutAddrList}}
	case ir.OpAddAddr, ir.OpAddAddrV2:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		bytesCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		na, err := decodeAddrLiteralBytes(bytesCell.Bytes)
		if err != nil {
			return newErr(index, ErrMisc, "addr literal: %v", err)
		}
		containerCell.MutAddrList.entries = append(containerCell.MutAddrList.entries, na)

	// ---- Block transaction list ----
	case ir.OpBeginBlockTransactions:
		inner = &cell{Type: ir.VarMutBlockTransactions, MutBlockTxns: &mutBlockTxns{}}
	case ir.OpEndBlockTransactions:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstBlockTransactions, ConstBlockTxns: in.MutBlockTxns}}
	case ir.OpAddTx:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		txCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		containerCell.MutBlockTxns.txs = append(containerCell.MutBlockTxns.txs, txCell.ConstTx)

	// ---- Bloom filter ----
	case ir.OpBeginBuildFilterLoad:
		inner = &cell{Type: ir.VarMutFilterLoad, MutFilter: &mutFilter{nHashFns: 1}}
	case ir.OpEndBuildFilterLoad:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstFilterLoad, ConstFilter: in.MutFilter}}
	case ir.OpAddTxToFilter:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		txCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		h := txCell.ConstTx.TxHash()
		containerCell.MutFilter.data = append(containerCell.MutFilter.data, h[:]...)
	case ir.OpAddTxoToFilter:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		txoCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		buf.Write(txoCell.Txo.Txid[:])
		var voutBuf [4]byte
		putU32(voutBuf[:], txoCell.Txo.Vout)
		buf.Write(voutBuf[:])
		containerCell.MutFilter.data = append(containerCell.MutFilter.data, buf.Bytes()...)
	case ir.OpBuildFilterAddFromTx:
		if _, err := c.input(index, instr, 0); err != nil {
			return err
		}
		txCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		h := txCell.ConstTx.TxHash()
		regular = []cell{{Type: ir.VarBytes, Bytes: h[:]}}
	case ir.OpBuildFilterAddFromTxo:
		if _, err := c.input(index, instr, 0); err != nil {
			return err
		}
		txoCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarBytes, Bytes: txoCell.Txo.Txid[:]}}

	// ---- BIP152 block-txn response ----
	case ir.OpBeginBuildBlockTxn:
		inner = &cell{Type: ir.VarMutBlockTxn, MutBlockTxn: &mutBlockTxn{blockHash: c.lastBlockHash}}
	case ir.OpEndBuildBlockTxn:
		in, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		regular = []cell{{Type: ir.VarConstBlockTxn, ConstBlockTxn: in.MutBlockTxn}}
	case ir.OpAddTxToBlockTxn:
		containerCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		txCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		containerCell.MutBlockTxn.txs = append(containerCell.MutBlockTxn.txs, txCell.ConstTx)
	case ir.OpBuildBIP152BlockTxReqFromMetadata:
		blockCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		h := blockCell.Block.BlockHash()
		req := &wire.MsgGetBlockTxns{BlockHash: h}
		for i := range blockCell.Block.Transactions {
			if i == 0 {
				continue // never request the coinbase
			}
			req.Indexes = append(req.Indexes, uint32(i-1))
		}
		if c.meta != nil {
			c.meta.RecordBlockTxnRequest(metadata.GetBlockTxnRequest{TriggeringInstruction: index})
		}
		regular = []cell{{Type: ir.VarBytes, Bytes: wireEncode(req)}}

	// ---- Selectors ----
	case ir.OpTakeTxo, ir.OpTakeCoinbaseTxo, ir.OpTaprootTxoUseAnnex:
		txoCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		if op.Kind == ir.OpTaprootTxoUseAnnex {
			txoCell.Txo.Annex = true
		}

	// ---- Time ----
	case ir.OpAdvanceTime:
		timeCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		durCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		next := timeCell.Time + uint32(durCell.Duration)
		c.time = next
		regular = []cell{{Type: ir.VarTime, Time: next}}
	case ir.OpSetTime:
		timeCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		c.time = timeCell.Time
		c.actions = append(c.actions, CompiledAction{Kind: ActionSetTime, Seconds: int64(timeCell.Time)})

	// ---- Block assembly ----
	case ir.OpBuildBlock:
		hdr, blk, err := c.buildBlock(index, instr)
		if err != nil {
			return err
		}
		c.lastBlockHash = chainHash(blk.BlockHash())
		if c.meta != nil {
			h := blk.BlockHash()
			var rb metadata.RecentBlock
			copy(rb.Hash[:], h[:])
			rb.DefiningBlock = &metadata.DefiningSite{InstructionIndex: index}
			c.meta.RecordBlock(rb)
		}
		regular = []cell{{Type: ir.VarHeader, Header: hdr}, {Type: ir.VarBlock, Block: blk}}

	case ir.OpBuildCompactBlock:
		blockCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		nonceCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		cb := wire.NewMsgCmpctBlock(blockCell.Block)
		cb.Nonce = uint64(nonceCell.Nonce)
		regular = []cell{{Type: ir.VarBytes, Bytes: wireEncode(cb)}}

	// ---- Senders ----
	case ir.OpSendRawMessage:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		msgTypeCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		bytesCell, err := c.input(index, instr, 2)
		if err != nil {
			return err
		}
		c.emitRaw(connCell.ConnIndex, msgTypeCommand(msgTypeCell.MsgType), bytesCell.Bytes)

	case ir.OpSendTx, ir.OpSendTxNoWit:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		txCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		m := &wire.MsgTx{}
		*m = *txCell.ConstTx
		if op.Kind == ir.OpSendTxNoWit {
			m = stripWitness(txCell.ConstTx)
		}
		c.emitRaw(connCell.ConnIndex, wire.CmdTx, wireEncode(m))

	case ir.OpSendBlock, ir.OpSendBlockNoWit:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		blockCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		blk := blockCell.Block
		if op.Kind == ir.OpSendBlockNoWit {
			blk = stripBlockWitness(blockCell.Block)
		}
		c.emitRaw(connCell.ConnIndex, wire.CmdBlock, wireEncode(blk))

	case ir.OpSendHeader:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		hdrCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		msg := wire.NewMsgHeaders()
		_ = msg.AddBlockHeader(hdrCell.Header.toWire())
		c.emitRaw(connCell.ConnIndex, wire.CmdHeaders, wireEncode(msg))

	case ir.OpSendInv, ir.OpSendGetData:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		invCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		if op.Kind == ir.OpSendInv {
			msg := wire.NewMsgInvSizeHint(uint(len(invCell.ConstInventory.items)))
			for _, iv := range invCell.ConstInventory.items {
				_ = msg.AddInvVect(iv)
			}
			c.emitRaw(connCell.ConnIndex, wire.CmdInv, wireEncode(msg))
		} else {
			msg := wire.NewMsgGetDataSizeHint(uint(len(invCell.ConstInventory.items)))
			for _, iv := range invCell.ConstInventory.items {
				_ = msg.AddInvVect(iv)
			}
			c.emitRaw(connCell.ConnIndex, wire.CmdGetData, wireEncode(msg))
		}

	case ir.OpSendGetAddr:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		c.emitRaw(connCell.ConnIndex, wire.CmdGetAddr, wireEncode(wire.NewMsgGetAddr()))

	case ir.OpSendAddr, ir.OpSendAddrV2:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		listCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		if op.Kind == ir.OpSendAddr {
			msg := wire.NewMsgAddr()
			for _, e := range listCell.ConstAddrList.entries {
				na := e
				_ = msg.AddAddress(na.ToLegacy())
			}
			c.emitRaw(connCell.ConnIndex, wire.CmdAddr, wireEncode(msg))
		} else {
			msg := wire.NewMsgAddrV2()
			for _, e := range listCell.ConstAddrList.entries {
				na := e
				msg.AddrList = append(msg.AddrList, &na)
			}
			c.emitRaw(connCell.ConnIndex, wire.CmdAddrV2, wireEncode(msg))
		}

	case ir.OpSendGetCFilters, ir.OpSendGetCFHeaders, ir.OpSendGetCFCheckpt:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		filterCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		cmd := wire.CmdGetCFilters
		var payload []byte
		switch op.Kind {
		case ir.OpSendGetCFHeaders:
			cmd = wire.CmdGetCFHeaders
			payload = wireEncode(&wire.MsgGetCFHeaders{FilterType: wire.FilterType(filterCell.CFilter)})
		case ir.OpSendGetCFCheckpt:
			cmd = wire.CmdGetCFCheckpt
			payload = wireEncode(&wire.MsgGetCFCheckpt{FilterType: wire.FilterType(filterCell.CFilter)})
		default:
			payload = wireEncode(&wire.MsgGetCFilters{FilterType: wire.FilterType(filterCell.CFilter)})
		}
		c.emitRaw(connCell.ConnIndex, cmd, payload)

	case ir.OpSendFilterLoad:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		filterCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		f := filterCell.ConstFilter
		msg := &wire.MsgFilterLoad{Filter: f.data, HashFuncs: f.nHashFns, Tweak: f.tweak, Flags: wire.BloomUpdateAll}
		c.emitRaw(connCell.ConnIndex, wire.CmdFilterLoad, wireEncode(msg))

	case ir.OpSendFilterAdd:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		bytesCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		msg := &wire.MsgFilterAdd{Data: bytesCell.Bytes}
		c.emitRaw(connCell.ConnIndex, wire.CmdFilterAdd, wireEncode(msg))

	case ir.OpSendFilterClear:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		c.emitRaw(connCell.ConnIndex, wire.CmdFilterClear, wireEncode(wire.NewMsgFilterClear()))

	case ir.OpSendCompactBlock:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		bytesCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		c.emitRaw(connCell.ConnIndex, wire.CmdCmpctBlock, bytesCell.Bytes)

	case ir.OpSendBlockTxn:
		connCell, err := c.input(index, instr, 0)
		if err != nil {
			return err
		}
		blockTxnCell, err := c.input(index, instr, 1)
		if err != nil {
			return err
		}
		bt := blockTxnCell.ConstBlockTxn
		msg := &wire.MsgBlockTxns{BlockHash: chainhash.Hash(bt.blockHash), Transactions: bt.txs}
		c.emitRaw(connCell.ConnIndex, wire.CmdBlockTxn, wireEncode(msg))

	default:
		return newErr(index, ErrMisc, "unhandled operation %s", op.Kind)
	}

	for _, r := range regular {
		c.push(r)
	}
	if inner != nil {
		c.push(*inner)
	}
	return nil
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (h *headerValue) toWire() *wire.BlockHeader {
	return &wire.BlockHeader{
		Version:    h.version,
		PrevBlock:  chainhash.Hash(h.prev),
		MerkleRoot: chainhash.Hash(h.merkle),
		Timestamp:  timeFromUnix(h.time),
		Bits:       h.bits,
		Nonce:      h.nonce,
	}
}

func stripWitness(tx *wire.MsgTx) *wire.MsgTx {
	out := tx.Copy()
	for _, in := range out.TxIn {
		in.Witness = nil
	}
	return out
}

func stripBlockWitness(b *wire.MsgBlock) *wire.MsgBlock {
	out := &wire.MsgBlock{Header: b.Header}
	for _, tx := range b.Transactions {
		out.Transactions = append(out.Transactions, stripWitness(tx))
	}
	return out
}

func msgTypeCommand(t [12]byte) string {
	n := bytes.IndexByte(t[:], 0)
	if n < 0 {
		n = len(t)
	}
	return string(t[:n])
}

func preseededScript(kind string) []byte {
	switch kind {
	case "p2wpkh":
		h := sha256.Sum256([]byte(kind))
		spk, _ := txscript.NewScriptBuilder().AddOp(txscript.OP_0).AddData(h[:20]).Script()
		return spk
	default:
		// Anyone-can-spend placeholder: the compiler does not hold a
		// signing key for harness-seeded funding outputs.
		spk, _ := txscript.NewScriptBuilder().AddOp(txscript.OP_TRUE).Script()
		return spk
	}
}
