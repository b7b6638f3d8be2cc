// Package codec implements the two program serialisation formats: a
// compact length-prefixed little-endian binary form for the on-disk
// corpus, and a JSON form for tooling. Both round-trip:
// Decode(Encode(p)) == p for every statically-valid program.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// EncodeBinary writes the compact binary form of p.
func EncodeBinary(p *ir.Program) []byte {
	var buf bytes.Buffer
	writeU64(&buf, p.Context.Timestamp)
	writeU32(&buf, uint32(p.Context.Nodes))
	writeU32(&buf, uint32(p.Context.Connections))
	writeU32(&buf, uint32(len(p.Instructions)))

	for _, instr := range p.Instructions {
		writeU32(&buf, uint32(len(instr.Inputs)))
		for _, in := range instr.Inputs {
			writeU32(&buf, uint32(in))
		}
		encodeOperation(&buf, instr.Operation)
	}
	return buf.Bytes()
}

// DecodeBinary parses the compact binary form produced by EncodeBinary.
func DecodeBinary(data []byte) (*ir.Program, error) {
	r := bytes.NewReader(data)
	ts, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read timestamp: %w", err)
	}
	nodes, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read nodes: %w", err)
	}
	conns, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read connections: %w", err)
	}
	count, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read instruction count: %w", err)
	}

	p := &ir.Program{
		Context: ir.ProgramContext{
			Nodes:       int(nodes),
			Connections: int(conns),
			Timestamp:   ts,
		},
		Instructions: make([]ir.Instruction, 0, count),
	}

	for i := uint32(0); i < count; i++ {
		n, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("codec: instruction %d: read input count: %w", i, err)
		}
		inputs := make([]int, n)
		for j := range inputs {
			v, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("codec: instruction %d: read input %d: %w", i, j, err)
			}
			inputs[j] = int(v)
		}
		op, err := decodeOperation(r)
		if err != nil {
			return nil, fmt.Errorf("codec: instruction %d: %w", i, err)
		}
		p.Instructions = append(p.Instructions, ir.Instruction{Inputs: inputs, Operation: op})
	}
	return p, nil
}

// EncodeJSON renders the human-readable tooling form.
func EncodeJSON(p *ir.Program) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// DecodeJSON parses the tooling form produced by EncodeJSON.
func DecodeJSON(data []byte) (*ir.Program, error) {
	var p ir.Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("codec: decode json: %w", err)
	}
	return &p, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// encodeOperation writes the opcode tag followed by whichever payload
// fields that opcode carries. The tag makes the stream self-describing: a
// reader never needs external schema information to know how many payload
// bytes follow a given Kind.
func encodeOperation(buf *bytes.Buffer, op ir.Operation) {
	writeU32(buf, uint32(op.Kind))
	switch op.Kind {
	case ir.OpLoadBytes:
		writeBytes(buf, op.Bytes)
	case ir.OpLoadFilterAdd:
		writeBytes(buf, op.Filter.Data)
	case ir.OpLoadMsgType:
		buf.Write(op.MsgType[:])
	case ir.OpLoadNode:
		writeU32(buf, op.NodeIndex)
	case ir.OpLoadConnection:
		writeU32(buf, op.ConnIndex)
	case ir.OpLoadConnectionType:
		writeU32(buf, uint32(op.ConnType))
	case ir.OpLoadDuration:
		writeU64(buf, op.Duration)
	case ir.OpLoadAddr:
		writeU32(buf, op.Addr.Time)
		writeU64(buf, op.Addr.Services)
		buf.WriteByte(op.Addr.Network)
		writeBytes(buf, op.Addr.Payload)
		writeU32(buf, uint32(op.Addr.Port))
		if op.Addr.IsV2 {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case ir.OpLoadTime:
		writeU32(buf, op.Time)
	case ir.OpLoadSize:
		writeU64(buf, op.Size)
	case ir.OpLoadBlockHeight:
		writeU32(buf, op.BlockHeight)
	case ir.OpLoadCompactFilterType:
		buf.WriteByte(op.CFilterType)
	case ir.OpLoadPrivateKey:
		buf.Write(op.PrivateKey[:])
	case ir.OpLoadSigHashFlags:
		writeU32(buf, op.SigHashFlags)
	case ir.OpLoadAmount:
		writeU64(buf, uint64(op.Amount))
	case ir.OpLoadTxVersion:
		writeU32(buf, uint32(op.TxVersion))
	case ir.OpLoadBlockVersion:
		writeU32(buf, uint32(op.BlockVersion))
	case ir.OpLoadLockTime:
		writeU32(buf, op.LockTime)
	case ir.OpLoadSequence:
		writeU32(buf, op.Sequence)
	case ir.OpLoadNonce:
		writeU32(buf, op.Nonce)
	case ir.OpLoadTxo:
		buf.Write(op.Txo.Txid[:])
		writeU32(buf, op.Txo.Vout)
		writeU64(buf, uint64(op.Txo.Amount))
		writeBytes(buf, []byte(op.Txo.ScriptKind))
	case ir.OpLoadHeader:
		buf.Write(op.Header.Prev[:])
		buf.Write(op.Header.MerkleRoot[:])
		writeU32(buf, op.Header.Nonce)
		writeU32(buf, op.Header.Bits)
		writeU32(buf, op.Header.Time)
		writeU32(buf, uint32(op.Header.Version))
		writeU32(buf, op.Header.Height)
	case ir.OpLoadFilterLoad:
		writeBytes(buf, op.Filter.Data)
		writeU32(buf, op.Filter.NHashFns)
		writeU32(buf, op.Filter.Tweak)
		buf.WriteByte(op.Filter.Flags)
	case ir.OpNop:
		writeU32(buf, uint32(op.NopOutputs))
		writeU32(buf, uint32(op.NopInnerOutputs))
	}
}

func decodeOperation(r *bytes.Reader) (ir.Operation, error) {
	kindRaw, err := readU32(r)
	if err != nil {
		return ir.Operation{}, err
	}
	op := ir.Operation{Kind: ir.OpKind(kindRaw)}

	readFull := func(n int) ([]byte, error) {
		b := make([]byte, n)
		if n == 0 {
			return b, nil
		}
		if _, err := r.Read(b); err != nil {
			return nil, err
		}
		return b, nil
	}

	switch op.Kind {
	case ir.OpLoadBytes:
		op.Bytes, err = readBytes(r)
	case ir.OpLoadFilterAdd:
		op.Filter.Data, err = readBytes(r)
	case ir.OpLoadMsgType:
		var b []byte
		b, err = readFull(12)
		copy(op.MsgType[:], b)
	case ir.OpLoadNode:
		op.NodeIndex, err = readU32(r)
	case ir.OpLoadConnection:
		op.ConnIndex, err = readU32(r)
	case ir.OpLoadConnectionType:
		var v uint32
		v, err = readU32(r)
		op.ConnType = ir.ConnectionType(v)
	case ir.OpLoadDuration:
		op.Duration, err = readU64(r)
	case ir.OpLoadAddr:
		op.Addr.Time, err = readU32(r)
		if err == nil {
			op.Addr.Services, err = readU64(r)
		}
		if err == nil {
			var nb byte
			nb, err = r.ReadByte()
			op.Addr.Network = nb
		}
		if err == nil {
			op.Addr.Payload, err = readBytes(r)
		}
		if err == nil {
			var port uint32
			port, err = readU32(r)
			op.Addr.Port = uint16(port)
		}
		if err == nil {
			var v2 byte
			v2, err = r.ReadByte()
			op.Addr.IsV2 = v2 == 1
		}
	case ir.OpLoadTime:
		op.Time, err = readU32(r)
	case ir.OpLoadSize:
		op.Size, err = readU64(r)
	case ir.OpLoadBlockHeight:
		op.BlockHeight, err = readU32(r)
	case ir.OpLoadCompactFilterType:
		op.CFilterType, err = r.ReadByte()
	case ir.OpLoadPrivateKey:
		var b []byte
		b, err = readFull(32)
		copy(op.PrivateKey[:], b)
	case ir.OpLoadSigHashFlags:
		op.SigHashFlags, err = readU32(r)
	case ir.OpLoadAmount:
		var v uint64
		v, err = readU64(r)
		op.Amount = int64(v)
	case ir.OpLoadTxVersion:
		var v uint32
		v, err = readU32(r)
		op.TxVersion = int32(v)
	case ir.OpLoadBlockVersion:
		var v uint32
		v, err = readU32(r)
		op.BlockVersion = int32(v)
	case ir.OpLoadLockTime:
		op.LockTime, err = readU32(r)
	case ir.OpLoadSequence:
		op.Sequence, err = readU32(r)
	case ir.OpLoadNonce:
		op.Nonce, err = readU32(r)
	case ir.OpLoadTxo:
		var b []byte
		b, err = readFull(32)
		copy(op.Txo.Txid[:], b)
		if err == nil {
			op.Txo.Vout, err = readU32(r)
		}
		if err == nil {
			var v uint64
			v, err = readU64(r)
			op.Txo.Amount = int64(v)
		}
		if err == nil {
			var kb []byte
			kb, err = readBytes(r)
			op.Txo.ScriptKind = string(kb)
		}
	case ir.OpLoadHeader:
		var b []byte
		b, err = readFull(32)
		copy(op.Header.Prev[:], b)
		if err == nil {
			b, err = readFull(32)
			copy(op.Header.MerkleRoot[:], b)
		}
		if err == nil {
			op.Header.Nonce, err = readU32(r)
		}
		if err == nil {
			op.Header.Bits, err = readU32(r)
		}
		if err == nil {
			op.Header.Time, err = readU32(r)
		}
		if err == nil {
			var v uint32
			v, err = readU32(r)
			op.Header.Version = int32(v)
		}
		if err == nil {
			op.Header.Height, err = readU32(r)
		}
	case ir.OpLoadFilterLoad:
		op.Filter.Data, err = readBytes(r)
		if err == nil {
			op.Filter.NHashFns, err = readU32(r)
		}
		if err == nil {
			op.Filter.Tweak, err = readU32(r)
		}
		if err == nil {
			op.Filter.Flags, err = r.ReadByte()
		}
	case ir.OpNop:
		var a, b uint32
		a, err = readU32(r)
		if err == nil {
			b, err = readU32(r)
		}
		op.NopOutputs = int(a)
		op.NopInnerOutputs = int(b)
	}
	if err != nil {
		return ir.Operation{}, fmt.Errorf("operation kind %d: %w", op.Kind, err)
	}
	return op, nil
}
