package emu

import "encoding/binary"

const pageBits = 12

const pageSize = 1 << pageBits

// Memory is a sparse, byte-addressed little-endian memory. Only pages that
// were written are mapped.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

// LoadProgram copies data into memory starting at addr.
func (m *Memory) LoadProgram(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// Mapped reports whether the page holding addr has been written.
func (m *Memory) Mapped(addr uint64) bool {
	_, ok := m.pages[addr>>pageBits]
	return ok
}

// Read8 reads one byte. Unmapped addresses read as zero.
func (m *Memory) Read8(addr uint64) byte {
	page, ok := m.pages[addr>>pageBits]
	if !ok {
		return 0
	}
	return page[addr&(pageSize-1)]
}

// Write8 writes one byte, mapping its page if needed.
func (m *Memory) Write8(addr uint64, v byte) {
	key := addr >> pageBits
	page, ok := m.pages[key]
	if !ok {
		page = new([pageSize]byte)
		m.pages[key] = page
	}
	page[addr&(pageSize-1)] = v
}

// Read32 reads a little-endian 32-bit word.
func (m *Memory) Read32(addr uint64) uint32 {
	var buf [4]byte
	for i := range buf {
		buf[i] = m.Read8(addr + uint64(i))
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// Write32 writes a little-endian 32-bit word.
func (m *Memory) Write32(addr uint64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	m.LoadProgram(addr, buf[:])
}
