// Package broadcast implements the BroadcastSink (spec §4.10, §6): fans
// out each tick's smoothed particle frame to connected websocket clients
// over a compact binary protocol, alongside a JSON StateMessage envelope
// for non-particle state changes sharing the same connection. Each
// client has a capacity-2 outbound queue; on overflow the oldest queued
// frame is dropped, never the newest (§6 external-interface invariant —
// the opposite of the usual "drop the newest" backpressure pattern).
package broadcast

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"time"
)

// frameMagic identifies a binary particle frame on the wire: ASCII "STP3".
const frameMagic uint32 = 0x53545033

// protocolVersion is the binary frame format version.
const protocolVersion uint16 = 1

// frameHeaderSize is the fixed 8-byte header: magic(4) + version(2) + count(2).
const frameHeaderSize = 4 + 2 + 2

// EncodeParticleFrame packs positions (N*3 float32, row-major x,y,z) into
// the wire format: an 8-byte header followed by N*3 little-endian
// float32s.
func EncodeParticleFrame(positions []float32) []byte {
	particleCount := len(positions) / 3
	buf := make([]byte, frameHeaderSize+len(positions)*4)

	binary.LittleEndian.PutUint32(buf[0:4], frameMagic)
	binary.LittleEndian.PutUint16(buf[4:6], protocolVersion)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(particleCount))

	offset := frameHeaderSize
	for _, f := range positions {
		binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(f))
		offset += 4
	}
	return buf
}

// StateMessage is the JSON envelope shared by every non-binary message on
// the broadcast connection (state changes, not per-tick particle data,
// per §9 "state-update messages are never binary").
type StateMessage struct {
	Type string      `json:"type"`
	TS   time.Time   `json:"ts"`
	Data interface{} `json:"data"`
}

// encodeStateMessage marshals a StateMessage to the JSON text frame sent
// over the same connection as binary particle frames. The leading '{'
// byte is what the client write pump uses to tell text frames apart
// from the binary particle wire format.
func encodeStateMessage(msg StateMessage) ([]byte, error) {
	return json.Marshal(msg)
}
