// Package codec implements the compiled module's binary format: a
// little-endian reader/writer that round-trips a chunk.Module bit-exactly.
package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/ardar-lang/ardar/chunk"
	"github.com/ardar-lang/ardar/values"
)

// MagicRegister is the 11-byte magic for the register-VM module variant this
// codec writes and reads; the stack-VM's 5-byte "ARDAR" magic is the legacy
// format and is rejected by Read.
const MagicRegister = "ARDAR-TURBO"

// value tags for the constant-pool wire format.
const (
	tagNumber uint8 = iota
	tagString
	tagBoolean
	tagNull
	tagUndefined
	tagFunctionRef
	tagOther // object/array/class/closure/native/promise: no payload, skipped on read
)

// ErrMalformed is returned when the magic fails to validate; a bad magic is
// host-fatal rather than recoverable.
type ErrMalformed struct{ Detail string }

func (e *ErrMalformed) Error() string { return "malformed module file: " + e.Detail }

// Write serialises m to w.
func Write(w io.Writer, m *chunk.Module) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(MagicRegister); err != nil {
		return err
	}
	if err := writeU32(bw, m.Version); err != nil {
		return err
	}
	if err := writeU32(bw, m.EntryChunkIndex); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(m.Chunks))); err != nil {
		return err
	}
	for _, c := range m.Chunks {
		if err := writeChunk(bw, c); err != nil {
			return err
		}
	}
	if err := writeU32(bw, uint32(len(m.Constants))); err != nil {
		return err
	}
	for _, v := range m.Constants {
		if err := writeValue(bw, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeChunk(w *bufio.Writer, c *chunk.Chunk) error {
	code := make([]byte, len(c.Code)*4)
	for i, ins := range c.Code {
		code[i*4] = byte(ins.Op)
		code[i*4+1] = ins.A
		code[i*4+2] = ins.B
		code[i*4+3] = ins.C
	}
	if err := writeU32(w, uint32(len(code))); err != nil {
		return err
	}
	if _, err := w.Write(code); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(c.Constants))); err != nil {
		return err
	}
	for _, v := range c.Constants {
		if err := writeValue(w, v); err != nil {
			return err
		}
	}
	if err := writeU32(w, uint32(c.Arity)); err != nil {
		return err
	}
	if err := writeString(w, c.Name); err != nil {
		return err
	}
	if err := writeU32(w, uint32(c.MaxLocals)); err != nil {
		return err
	}
	return writeUpvalues(w, c.Upvalues)
}

// writeUpvalues serialises the CreateClosure-index -> descriptors side
// table alongside the chunk it belongs to, so OpCreateClosure has the same
// descriptors to bind on a loaded module as it did on the one just compiled.
func writeUpvalues(w *bufio.Writer, upvalues map[int][]chunk.UpvalueDescriptor) error {
	if err := writeU32(w, uint32(len(upvalues))); err != nil {
		return err
	}
	for insIdx, descs := range upvalues {
		if err := writeU32(w, uint32(insIdx)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(descs))); err != nil {
			return err
		}
		for _, d := range descs {
			isLocal := byte(0)
			if d.IsLocal {
				isLocal = 1
			}
			if err := w.WriteByte(isLocal); err != nil {
				return err
			}
			if err := w.WriteByte(d.Index); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeValue(w *bufio.Writer, v values.Value) error {
	switch v.Kind {
	case values.KindNumber:
		if err := w.WriteByte(tagNumber); err != nil {
			return err
		}
		return writeF64(w, v.Num)
	case values.KindBoolean:
		if err := w.WriteByte(tagBoolean); err != nil {
			return err
		}
		n := 0.0
		if v.Num != 0 {
			n = 1.0
		}
		return writeF64(w, n)
	case values.KindString:
		if err := w.WriteByte(tagString); err != nil {
			return err
		}
		return writeString(w, v.Str)
	case values.KindNull:
		return w.WriteByte(tagNull)
	case values.KindUndefined:
		return w.WriteByte(tagUndefined)
	case values.KindFunctionRef:
		if err := w.WriteByte(tagFunctionRef); err != nil {
			return err
		}
		fn := v.AsFunctionRef()
		if err := writeU32(w, fn.ChunkIndex); err != nil {
			return err
		}
		if err := writeU32(w, uint32(fn.Arity)); err != nil {
			return err
		}
		if err := writeString(w, fn.Name); err != nil {
			return err
		}
		return writeU32(w, uint32(fn.UpvaluesSize))
	default:
		// Objects, arrays, classes, closures, native functions and promises
		// are runtime-only handles with no module-constant representation;
		// callers never place them in a constant pool.
		return w.WriteByte(tagOther)
	}
}

func writeU32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeF64(w *bufio.Writer, v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := w.Write(buf[:])
	return err
}

func writeString(w *bufio.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// Read deserialises a Module from r, validating the magic first.
func Read(r io.Reader) (*chunk.Module, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(MagicRegister))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, &ErrMalformed{Detail: "truncated magic"}
	}
	if string(magic) != MagicRegister {
		return nil, &ErrMalformed{Detail: fmt.Sprintf("unexpected magic %q", magic)}
	}
	m := chunk.NewModule()
	version, err := readU32(br)
	if err != nil {
		return nil, err
	}
	m.Version = version
	entry, err := readU32(br)
	if err != nil {
		return nil, err
	}
	m.EntryChunkIndex = entry
	numChunks, err := readU32(br)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numChunks; i++ {
		c, err := readChunk(br)
		if err != nil {
			return nil, err
		}
		m.Chunks = append(m.Chunks, c)
	}
	numConsts, err := readU32(br)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numConsts; i++ {
		v, err := readValue(br)
		if err != nil {
			return nil, err
		}
		m.Constants = append(m.Constants, v)
	}
	return m, nil
}

func readChunk(r io.Reader) (*chunk.Chunk, error) {
	codeSize, err := readU32(r)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeSize)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}
	c := chunk.New("")
	for i := 0; i+3 < len(code); i += 4 {
		c.Code = append(c.Code, chunk.Instruction{
			Op: chunk.Op(code[i]), A: code[i+1], B: code[i+2], C: code[i+3],
		})
	}
	numConsts, err := readU32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numConsts; i++ {
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		c.Constants = append(c.Constants, v)
	}
	arity, err := readU32(r)
	if err != nil {
		return nil, err
	}
	c.Arity = int(arity)
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	c.Name = name
	maxLocals, err := readU32(r)
	if err != nil {
		return nil, err
	}
	c.MaxLocals = int(maxLocals)
	upvalues, err := readUpvalues(r)
	if err != nil {
		return nil, err
	}
	c.Upvalues = upvalues
	return c, nil
}

func readUpvalues(r io.Reader) (map[int][]chunk.UpvalueDescriptor, error) {
	numEntries, err := readU32(r)
	if err != nil {
		return nil, err
	}
	upvalues := make(map[int][]chunk.UpvalueDescriptor, numEntries)
	for i := uint32(0); i < numEntries; i++ {
		insIdx, err := readU32(r)
		if err != nil {
			return nil, err
		}
		numDescs, err := readU32(r)
		if err != nil {
			return nil, err
		}
		descs := make([]chunk.UpvalueDescriptor, numDescs)
		for j := uint32(0); j < numDescs; j++ {
			var buf [2]byte
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, err
			}
			descs[j] = chunk.UpvalueDescriptor{IsLocal: buf[0] != 0, Index: buf[1]}
		}
		upvalues[int(insIdx)] = descs
	}
	return upvalues, nil
}

func readValue(r io.Reader) (values.Value, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		return values.Value{}, err
	}
	switch tagBuf[0] {
	case tagNumber:
		f, err := readF64(r)
		if err != nil {
			return values.Value{}, err
		}
		return values.Number(f), nil
	case tagBoolean:
		f, err := readF64(r)
		if err != nil {
			return values.Value{}, err
		}
		return values.Boolean(f != 0), nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return values.Value{}, err
		}
		return values.String(s), nil
	case tagNull:
		return values.Null, nil
	case tagUndefined:
		return values.Undefined, nil
	case tagFunctionRef:
		chunkIdx, err := readU32(r)
		if err != nil {
			return values.Value{}, err
		}
		arity, err := readU32(r)
		if err != nil {
			return values.Value{}, err
		}
		name, err := readString(r)
		if err != nil {
			return values.Value{}, err
		}
		upvaluesSize, err := readU32(r)
		if err != nil {
			return values.Value{}, err
		}
		return values.FromFunctionRef(&values.FunctionObject{
			ChunkIndex: chunkIdx, Arity: int(arity), Name: name, UpvaluesSize: int(upvaluesSize),
		}), nil
	default:
		// Unknown tags carry no payload and are skipped.
		return values.Undefined, nil
	}
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readF64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// SizeReport renders a human-readable byte count for disassembler/CLI
// output (`ardar disasm`).
func SizeReport(n int) string {
	return humanize.Bytes(uint64(n))
}
