package generators

import (
	"math/rand"

	"github.com/fuzzamoto/ir-engine/internal/ir"
	"github.com/fuzzamoto/ir-engine/internal/ir/builder"
	"github.com/fuzzamoto/ir-engine/internal/ir/metadata"
)

// BIP155 network identifiers, mirrored here (not in package ir) since
// AddrLiteral.Network is carried as a bare uint8 to avoid an import cycle
// with the richer address model this package builds values from.
const (
	addrNetIPv4  = 1
	addrNetIPv6  = 2
	addrNetTorV3 = 4
	addrNetI2P   = 5
	addrNetCJDNS = 6
)

// randAddrPayload samples a network id and a payload of the length BIP155
// prescribes for it: 4 bytes for IPv4, 16 for IPv6/CJDNS, 32 for TorV3/I2P.
// A small fraction of draws intentionally mismatch length against network id
// to exercise the node's own length validation.
func randAddrPayload(rng *rand.Rand) (net uint8, payload []byte) {
	choices := []uint8{addrNetIPv4, addrNetIPv6, addrNetTorV3, addrNetI2P, addrNetCJDNS}
	net = choices[rng.Intn(len(choices))]
	length := map[uint8]int{addrNetIPv4: 4, addrNetIPv6: 16, addrNetTorV3: 32, addrNetI2P: 32, addrNetCJDNS: 16}[net]
	if rng.Intn(20) == 0 {
		length += rng.Intn(8) - 4 // occasionally off by a few bytes
		if length < 0 {
			length = 0
		}
	}
	payload = make([]byte, length)
	rng.Read(payload)
	return net, payload
}

func randAddrLiteral(rng *rand.Rand, b *builder.ProgramBuilder, v2 bool) ir.AddrLiteral {
	net, payload := randAddrPayload(rng)
	return ir.AddrLiteral{
		Time:     uint32(b.Context().Timestamp) - uint32(rng.Intn(3600)),
		Services: 1 << uint(rng.Intn(4)),
		Network:  net,
		Payload:  payload,
		Port:     uint16(1024 + rng.Intn(60000)),
		IsV2:     v2,
	}
}

func buildAddrList(b *builder.ProgramBuilder, rng *rand.Rand, v2 bool, count int) builder.IndexedVariable {
	beginOp, endOp, addOp := ir.OpBeginBuildAddrList, ir.OpEndBuildAddrList, ir.OpAddAddr
	if v2 {
		beginOp, endOp, addOp = ir.OpBeginBuildAddrListV2, ir.OpEndBuildAddrListV2, ir.OpAddAddrV2
	}
	inner := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: beginOp})
	for i := 0; i < count; i++ {
		lit := b.ForceAppendExpectOutput(nil, ir.Operation{Kind: ir.OpLoadAddr, Addr: randAddrLiteral(rng, b, v2)})
		b.ForceAppend([]int{inner.Index, lit.Index}, ir.Operation{Kind: addOp})
	}
	return b.ForceAppendExpectOutput([]int{inner.Index}, ir.Operation{Kind: endOp})
}

// AddrRelayGenerator builds and sends a legacy addr message.
type AddrRelayGenerator struct{}

func (AddrRelayGenerator) Name() string                           { return "AddrRelay" }
func (AddrRelayGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (AddrRelayGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	list := buildAddrList(b, rng, false, 1+rng.Intn(8))
	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index, list.Index}, ir.Operation{Kind: ir.OpSendAddr})
	return nil
}

// AddrRelayV2Generator builds and sends a BIP155 addrv2 message.
type AddrRelayV2Generator struct{}

func (AddrRelayV2Generator) Name() string                           { return "AddrRelayV2" }
func (AddrRelayV2Generator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (AddrRelayV2Generator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	list := buildAddrList(b, rng, true, 1+rng.Intn(8))
	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index, list.Index}, ir.Operation{Kind: ir.OpSendAddrV2})
	return nil
}

// GetAddrGenerator requests the peer's address table.
type GetAddrGenerator struct{}

func (GetAddrGenerator) Name() string                           { return "GetAddr" }
func (GetAddrGenerator) RequestedContext() ir.InstructionContext { return ir.ContextGlobal }
func (GetAddrGenerator) Generate(b *builder.ProgramBuilder, rng *rand.Rand, _ *metadata.PerTestcaseMetadata) error {
	conn := randConnOrNew(b, rng)
	b.ForceAppend([]int{conn.Index}, ir.Operation{Kind: ir.OpSendGetAddr})
	return nil
}
