package compiler

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// finalizeTx assigns output values per the fee-capping policy, assembles
// the wire.MsgTx, and signs every input whose Scripts carry a deferred
// signing obligation. Coinbase transactions skip signing (their single
// input is the BIP34 height scriptSig BuildCoinbaseTxInput already built).
func (c *Compiler) finalizeTx(index int, tx *mutTx, isCoinbase bool) (*wire.MsgTx, error) {
	if isCoinbase {
		distributeCoinbaseValue(tx)
	} else {
		distributeOutputValues(tx)
	}

	msg := wire.NewMsgTx(tx.version)
	msg.LockTime = tx.lockTime
	msg.TxIn = append(msg.TxIn, tx.inputs...)
	msg.TxOut = append(msg.TxOut, tx.outputs...)

	if isCoinbase {
		if len(msg.TxIn) == 0 {
			sigScript := []byte{}
			if c.pendingCoinbaseScriptSig != nil {
				sigScript = c.pendingCoinbaseScriptSig.ScriptSig
			}
			msg.TxIn = append(msg.TxIn, &wire.TxIn{
				PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
				SignatureScript:  sigScript,
				Sequence:         wire.MaxTxInSequenceNum,
			})
		}
		c.pendingCoinbaseScriptSig = nil
		return msg, nil
	}

	if err := c.signInputs(index, msg, tx); err != nil {
		return nil, err
	}
	return msg, nil
}

// distributeCoinbaseValue credits the full block subsidy to the coinbase's
// first output (crediting zero to the rest), the same remainder-to-first
// convention distributeOutputValues uses for ordinary transactions.
func distributeCoinbaseValue(tx *mutTx) {
	if len(tx.outputs) == 0 {
		return
	}
	tx.outputs[0].Value = coinbaseReward
	tx.totalOutput = coinbaseReward
}

// distributeOutputValues reserves txFeeSats out of the transaction's total
// observed input value and splits what remains evenly across its outputs,
// crediting any remainder to the first output. AddTxOutput carries no
// amount operand of its own; this is the compiler's one policy for turning
// a bare list of scriptPubKeys into a balanced, fee-paying transaction.
func distributeOutputValues(tx *mutTx) {
	if len(tx.outputs) == 0 {
		return
	}
	available := tx.totalInput - txFeeSats
	if available < 0 {
		available = 0
	}
	share := available / int64(len(tx.outputs))
	remainder := available - share*int64(len(tx.outputs))
	for i, out := range tx.outputs {
		out.Value = share
		if i == 0 {
			out.Value += remainder
		}
		tx.totalOutput += out.Value
	}
}

func (c *Compiler) signInputs(index int, msg *wire.MsgTx, tx *mutTx) error {
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(tx.inputTxos))
	for i, txo := range tx.inputTxos {
		prevOuts[msg.TxIn[i].PreviousOutPoint] = &wire.TxOut{Value: txo.Amount, PkScript: txo.Script}
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(msg, fetcher)

	for i, txo := range tx.inputTxos {
		sp := txo.Spender
		if sp == nil {
			continue // pre-seeded Txo: anyone-can-spend placeholder, nothing to sign
		}
		if !sp.RequiresSigning {
			msg.TxIn[i].SignatureScript = sp.ScriptSig
			msg.TxIn[i].Witness = sp.Witness
			continue
		}

		hashType := txscript.SigHashType(sp.SigHashFlags)
		if hashType == 0 {
			hashType = txscript.SigHashAll
		}

		switch sp.SignOp {
		case ir.OpBuildPayToPubKey:
			sig, err := txscript.RawTxInSignature(msg, i, sp.ScriptPubKey, hashType, sp.PrivKey)
			if err != nil {
				return newErr(index, ErrMisc, "sign p2pk: %v", err)
			}
			msg.TxIn[i].SignatureScript, _ = txscript.NewScriptBuilder().AddData(sig).Script()

		case ir.OpBuildPayToPubKeyHash:
			pub := sp.PrivKey.PubKey().SerializeCompressed()
			sig, err := txscript.RawTxInSignature(msg, i, sp.ScriptPubKey, hashType, sp.PrivKey)
			if err != nil {
				return newErr(index, ErrMisc, "sign p2pkh: %v", err)
			}
			msg.TxIn[i].SignatureScript, _ = txscript.NewScriptBuilder().
				AddData(sig).AddData(pub).Script()

		case ir.OpBuildPayToWitnessPubKeyHash:
			pub := sp.PrivKey.PubKey().SerializeCompressed()
			pkScript, _ := txscript.NewScriptBuilder().
				AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).
				AddData(btcutil.Hash160(pub)).AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG).Script()
			sig, err := txscript.RawTxInWitnessSignature(msg, sigHashes, i, txo.Amount, pkScript, hashType, sp.PrivKey)
			if err != nil {
				return newErr(index, ErrMisc, "sign p2wpkh: %v", err)
			}
			msg.TxIn[i].Witness = wire.TxWitness{sig, pub}

		case ir.OpBuildPayToTaproot:
			sig, err := txscript.RawTxInTaprootSignature(
				msg, sigHashes, i, txo.Amount, sp.ScriptPubKey, txscript.TapLeaf{}, hashType, sp.PrivKey)
			if err != nil {
				return newErr(index, ErrMisc, "sign taproot: %v", err)
			}
			witness := wire.TxWitness{sig}
			if txo.Annex {
				witness = append(witness, []byte{0x50})
			}
			msg.TxIn[i].Witness = witness

		default:
			return newErr(index, ErrMisc, "no signer for script kind %s", sp.SignOp)
		}
	}
	return nil
}
