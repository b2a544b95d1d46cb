package binary

import (
	"encoding/binary"
	"math/bits"
)

// Lookup3Checksum returns Bob Jenkins' lookup3 hashlittle of data with a
// zero seed. HDF5 stores it after every versioned metadata structure.
func Lookup3Checksum(data []byte) uint32 {
	seed := 0xdeadbeef + uint32(len(data))
	s := lookup3{seed, seed, seed}
	for len(data) > 12 {
		s.add(data)
		s.mix()
		data = data[12:]
	}
	if len(data) == 0 {
		return s.c
	}
	// The last block is zero-padded.
	var tail [12]byte
	copy(tail[:], data)
	s.add(tail[:])
	s.final()
	return s.c
}

// VerifyLookup3 reports whether data hashes to sum.
func VerifyLookup3(data []byte, sum uint32) bool {
	return Lookup3Checksum(data) == sum
}

type lookup3 struct {
	a, b, c uint32
}

func (s *lookup3) add(block []byte) {
	s.a += binary.LittleEndian.Uint32(block)
	s.b += binary.LittleEndian.Uint32(block[4:])
	s.c += binary.LittleEndian.Uint32(block[8:])
}

// mix rotates the roles of a, b and c through six rounds.
func (s *lookup3) mix() {
	x, y, z := &s.a, &s.b, &s.c
	for _, r := range [...]int{4, 6, 8, 16, 19, 4} {
		*x -= *z
		*x ^= bits.RotateLeft32(*z, r)
		*z += *y
		x, y, z = y, z, x
	}
}

func (s *lookup3) final() {
	x, y, o := &s.c, &s.b, &s.a
	for _, r := range [...]int{14, 11, 25, 16, 4, 14, 24} {
		*x ^= *y
		*x -= bits.RotateLeft32(*y, r)
		x, y, o = o, x, y
	}
}
