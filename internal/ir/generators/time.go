package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// AdvanceTimeGenerator appends LoadDuration/AdvanceTime against the nearest
// in-scope Time variable (synthesising an initial LoadTime from the
// program's context timestamp if none exists yet), mirroring mock-time
// advances a real fuzzing run uses to cross staleness/timeout thresholds.
type AdvanceTimeGenerator struct{}

func (AdvanceTimeGenerator) Name() string                             { return "AdvanceTime" }
func (AdvanceTimeGenerator) RequestedContext() ir.InstructionContext   { return ir.ContextGlobal }

func (AdvanceTimeGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	timeVar, ok := b.GetNearestVariable(ir.VarTime)
	if !ok {
		timeVar = b.ForceAppendExpectOutput(nil, ir.Operation{
			Kind: ir.OpLoadTime, Time: uint32(b.Context().Timestamp),
		})
	}
	dur := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadDuration, Duration: randDuration(rng)})
	b.ForceAppend([]int{timeVar.Index, dur.Index}, ir.Operation{Kind: ir.OpAdvanceTime})
	return nil
}

// SendMessageGenerator appends a raw, arbitrary wire message: LoadConnection
// (or reuse), LoadMsgType, LoadBytes, SendRawMessage. This is the engine's
// least-structured generator, useful for hitting a node's generic message
// dispatch/parsing path rather than any specific protocol semantics.
type SendMessageGenerator struct{}

func (SendMessageGenerator) Name() string                           { return "SendMessage" }
func (SendMessageGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }

// commonCommands are wire command strings worth biasing raw-message fuzzing
// toward, alongside fully random 12-byte garbage.
var commonCommands = []string{"tx", "block", "headers", "inv", "getdata", "ping", "pong", "addr"}

func (SendMessageGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	conn := randConnOrNew(b, rng)

	var msgType [12]byte
	if rng.Intn(4) != 0 {
		copy(msgType[:], commonCommands[rng.Intn(len(commonCommands))])
	} else {
		rng.Read(msgType[:])
	}
	msgTypeVar := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadMsgType, MsgType: msgType})
	payload := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadBytes, Bytes: randBytes(rng, 256)})
	b.ForceAppend([]int{conn.Index, msgTypeVar.Index, payload.Index}, ir.Operation{Kind: ir.OpSendRawMessage})
	return nil
}
