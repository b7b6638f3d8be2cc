package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/btcsuite/btcd/wire"

	"github.com/fuzzamoto/ir-engine/internal/ir"
)

// encodeAddrLiteral renders an AddrLiteral into the raw bytes LoadAddr
// produces: a little-endian time/services header followed by the
// BIP155-style (network, payload, port) triple, decodable again by
// decodeAddrLiteralBytes. This round-trip format is the compiler's own
// convention, not a wire-protocol message in itself — LoadAddr's output
// only becomes a real addr/addrv2 entry once AddAddr/AddAddrV2 folds it
// into a MutAddrList.
func encodeAddrLiteral(a ir.AddrLiteral) []byte {
	var buf bytes.Buffer
	var hdr [13]byte
	binary.LittleEndian.PutUint32(hdr[0:4], a.Time)
	binary.LittleEndian.PutUint64(hdr[4:12], a.Services)
	hdr[12] = a.Network
	buf.Write(hdr[:])
	var portBuf [2]byte
	binary.LittleEndian.PutUint16(portBuf[:], a.Port)
	buf.Write(portBuf[:])
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(a.Payload)))
	buf.Write(lenBuf[:])
	buf.Write(a.Payload)
	return buf.Bytes()
}

func decodeAddrLiteral(raw []byte) (ir.AddrLiteral, error) {
	if len(raw) < 17 {
		return ir.AddrLiteral{}, fmt.Errorf("addr literal too short: %d bytes", len(raw))
	}
	var a ir.AddrLiteral
	a.Time = binary.LittleEndian.Uint32(raw[0:4])
	a.Services = binary.LittleEndian.Uint64(raw[4:12])
	a.Network = raw[12]
	a.Port = binary.LittleEndian.Uint16(raw[13:15])
	n := binary.LittleEndian.Uint16(raw[15:17])
	if int(17+n) > len(raw) {
		return ir.AddrLiteral{}, fmt.Errorf("addr literal payload truncated")
	}
	a.Payload = raw[17 : 17+n]
	return a, nil
}

// decodeAddrLiteralBytes turns a LoadAddr-produced Bytes cell into a
// wire.NetAddressV2, the type every addr-list container stores regardless
// of whether it will ultimately be sent as addr (v1, downgraded via
// ToLegacy) or addrv2.
func decodeAddrLiteralBytes(raw []byte) (wire.NetAddressV2, error) {
	a, err := decodeAddrLiteral(raw)
	if err != nil {
		return wire.NetAddressV2{}, err
	}
	na := wire.NetAddressV2{
		Timestamp: timeFromUnix(a.Time),
		Services:  wire.ServiceFlag(a.Services),
		Port:      a.Port,
	}
	switch len(a.Payload) {
	case net.IPv4len, net.IPv6len:
		na.Addr = net.IP(append([]byte(nil), a.Payload...))
	default:
		// Non-IP network (Tor/I2P/CJDNS): carried as an opaque onion-style
		// address via the generic byte-slice path wire.NetAddressV2 exposes.
		na.Addr = net.IP(append([]byte(nil), a.Payload...))
	}
	return na, nil
}
