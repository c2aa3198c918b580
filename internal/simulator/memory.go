package simulator

import (
	"encoding/binary"
	"sync"
)

const pageSize = 4096

type pageKey struct {
	x, y uint8
	page uint64
}

// memory is a sparse byte store addressed by (x, y, address). Pages are
// allocated on first write; untouched bytes read as zero.
type memory struct {
	mu    sync.Mutex
	pages map[pageKey]*[pageSize]byte
}

func newMemory() *memory {
	return &memory{pages: make(map[pageKey]*[pageSize]byte)}
}

func (m *memory) read(x, y uint8, addr uint64, n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, n)
	for done := 0; done < n; {
		a := addr + uint64(done)
		off := int(a % pageSize)
		chunk := min(pageSize-off, n-done)
		if p, ok := m.pages[pageKey{x: x, y: y, page: a / pageSize}]; ok {
			copy(out[done:done+chunk], p[off:off+chunk])
		}
		done += chunk
	}
	return out
}

func (m *memory) write(x, y uint8, addr uint64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for done := 0; done < len(data); {
		a := addr + uint64(done)
		off := int(a % pageSize)
		chunk := min(pageSize-off, len(data)-done)
		k := pageKey{x: x, y: y, page: a / pageSize}
		p, ok := m.pages[k]
		if !ok {
			p = new([pageSize]byte)
			m.pages[k] = p
		}
		copy(p[off:off+chunk], data[done:done+chunk])
		done += chunk
	}
}

func (m *memory) read32(x, y uint8, addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.read(x, y, addr, 4))
}

func (m *memory) write32(x, y uint8, addr uint64, v uint32) {
	m.write(x, y, addr, binary.LittleEndian.AppendUint32(nil, v))
}
