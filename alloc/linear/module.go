package linear

import (
	"bytes"
	"encoding/binary"
)

const (
	wasmMagic   uint32 = 0x6d736100 // "\0asm"
	wasmVersion uint32 = 1

	sectionMemory byte = 5
	sectionExport byte = 7

	limitsHasMax byte = 0x01
	exportMemory byte = 0x02

	// MemoryExport is the export name of the arena memory.
	MemoryExport = "memory"
)

// moduleWriter emits the few WebAssembly binary constructs the arena
// module needs.
type moduleWriter struct {
	buf bytes.Buffer
}

func (w *moduleWriter) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *moduleWriter) u32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// u32 writes an unsigned LEB128 value.
func (w *moduleWriter) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func (w *moduleWriter) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *moduleWriter) section(id byte, body *moduleWriter) {
	w.byte(id)
	w.u32(uint32(body.buf.Len()))
	w.buf.Write(body.buf.Bytes())
}

// memoryModule encodes a module that defines one memory of exactly pages
// pages (min == max, so it can never grow) and exports it as MemoryExport.
func memoryModule(pages uint32) []byte {
	var w moduleWriter
	w.u32LE(wasmMagic)
	w.u32LE(wasmVersion)

	var mem moduleWriter
	mem.u32(1)
	mem.byte(limitsHasMax)
	mem.u32(pages)
	mem.u32(pages)
	w.section(sectionMemory, &mem)

	var exp moduleWriter
	exp.u32(1)
	exp.name(MemoryExport)
	exp.byte(exportMemory)
	exp.u32(0)
	w.section(sectionExport, &exp)

	return w.buf.Bytes()
}
