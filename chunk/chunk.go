// Package chunk defines the compiled unit the compiler emits into and the
// VM dispatches from: a sequence of fixed-width register instructions plus a
// constant pool, aggregated into a Module.
package chunk

import "github.com/ardar-lang/ardar/values"

// Op is the register-VM opcode space. A separate stack-VM encoding is out
// of scope; this is the engineered core.
type Op uint8

const (
	OpLoadConst Op = iota
	OpMove

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow

	OpShiftLeft
	OpShiftRight
	OpUnsignedShiftRight
	OpBitAnd
	OpBitOr
	OpBitXor

	OpLogicalAnd
	OpLogicalOr
	OpNullishCoalescing

	OpEqual
	OpNotEqual
	OpStrictEqual
	OpStrictNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual

	OpIn
	OpInstanceOf

	OpTypeOf
	OpVoid
	OpLogicalNot
	OpNegate
	OpDelete
	OpIncrement
	OpDecrement

	OpJump
	OpJumpIfFalse
	OpLoop

	OpPushArg
	OpPushSpreadArg
	OpCall
	OpSuperCall
	OpReturn

	OpCreateClosure
	OpCreateInstance
	OpInvokeConstructor

	OpLoadLocalVar
	OpLoadLocalLet
	OpLoadLocalConst
	OpStoreLocalVar
	OpStoreLocalLet
	OpStoreLocalConst

	OpLoadGlobalVar
	OpLoadGlobalLet
	OpLoadGlobalConst
	OpStoreGlobalVar
	OpStoreGlobalLet
	OpStoreGlobalConst
	OpCreateGlobalVar
	OpCreateGlobalLet
	OpCreateGlobalConst

	OpLoadUpvalue
	OpStoreUpvalueVar
	OpStoreUpvalueLet
	OpStoreUpvalueConst
	OpCloseUpvalue

	OpNewClass

	OpCreateClassPublicPropertyVar
	OpCreateClassPublicPropertyConst
	OpCreateClassProtectedPropertyVar
	OpCreateClassProtectedPropertyConst
	OpCreateClassPrivatePropertyVar
	OpCreateClassPrivatePropertyConst
	OpCreateClassPublicStaticPropertyVar
	OpCreateClassPublicStaticPropertyConst
	OpCreateClassProtectedStaticPropertyVar
	OpCreateClassProtectedStaticPropertyConst
	OpCreateClassPrivateStaticPropertyVar
	OpCreateClassPrivateStaticPropertyConst

	OpCreateClassPublicMethod
	OpCreateClassProtectedMethod
	OpCreateClassPrivateMethod
	OpCreateClassPublicStaticMethod
	OpCreateClassProtectedStaticMethod
	OpCreateClassPrivateStaticMethod

	OpNewObject
	OpCreateObjectLiteral
	OpCreateObjectLiteralProperty
	OpNewArray
	OpArrayPush
	OpArraySpread
	OpObjectSpread
	OpSetProperty
	OpGetProperty
	OpSetPropertyDynamic
	OpGetPropertyDynamic
	OpGetObjectLength
	OpEnumKeys

	OpGetThis
	OpLoadThisProperty
	OpStoreThisProperty
	OpGetParentObject

	OpTry
	OpEndTry
	OpEndFinally
	OpThrow
	OpLoadExceptionValue

	OpCreatePromise
	OpAwait
	OpSetExecutionContext
	OpPushLexicalEnv
	OpPopLexicalEnv
)

var opNames = map[Op]string{
	OpLoadConst: "LoadConst", OpMove: "Move",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpPow: "Pow",
	OpShiftLeft: "ShiftLeft", OpShiftRight: "ShiftRight", OpUnsignedShiftRight: "UnsignedShiftRight",
	OpBitAnd: "BitAnd", OpBitOr: "BitOr", OpBitXor: "BitXor",
	OpLogicalAnd: "LogicalAnd", OpLogicalOr: "LogicalOr", OpNullishCoalescing: "NullishCoalescing",
	OpEqual: "Equal", OpNotEqual: "NotEqual", OpStrictEqual: "StrictEqual", OpStrictNotEqual: "StrictNotEqual",
	OpLessThan: "LessThan", OpLessThanOrEqual: "LessThanOrEqual",
	OpGreaterThan: "GreaterThan", OpGreaterThanOrEqual: "GreaterThanOrEqual",
	OpIn: "In", OpInstanceOf: "InstanceOf",
	OpTypeOf: "TypeOf", OpVoid: "Void", OpLogicalNot: "LogicalNot", OpNegate: "Negate",
	OpDelete: "Delete", OpIncrement: "Increment", OpDecrement: "Decrement",
	OpJump: "Jump", OpJumpIfFalse: "JumpIfFalse", OpLoop: "Loop",
	OpPushArg: "PushArg", OpPushSpreadArg: "PushSpreadArg",
	OpCall: "Call", OpSuperCall: "SuperCall", OpReturn: "Return",
	OpCreateClosure: "CreateClosure", OpCreateInstance: "CreateInstance", OpInvokeConstructor: "InvokeConstructor",
	OpLoadLocalVar: "LoadLocalVar", OpLoadLocalLet: "LoadLocalLet", OpLoadLocalConst: "LoadLocalConst",
	OpStoreLocalVar: "StoreLocalVar", OpStoreLocalLet: "StoreLocalLet", OpStoreLocalConst: "StoreLocalConst",
	OpLoadGlobalVar: "LoadGlobalVar", OpLoadGlobalLet: "LoadGlobalLet", OpLoadGlobalConst: "LoadGlobalConst",
	OpStoreGlobalVar: "StoreGlobalVar", OpStoreGlobalLet: "StoreGlobalLet", OpStoreGlobalConst: "StoreGlobalConst",
	OpCreateGlobalVar: "CreateGlobalVar", OpCreateGlobalLet: "CreateGlobalLet", OpCreateGlobalConst: "CreateGlobalConst",
	OpLoadUpvalue: "LoadUpvalue", OpStoreUpvalueVar: "StoreUpvalueVar", OpStoreUpvalueLet: "StoreUpvalueLet",
	OpStoreUpvalueConst: "StoreUpvalueConst", OpCloseUpvalue: "CloseUpvalue",
	OpNewClass: "NewClass",
	OpCreateClassPublicPropertyVar: "CreateClassPublicPropertyVar", OpCreateClassPublicPropertyConst: "CreateClassPublicPropertyConst",
	OpCreateClassProtectedPropertyVar: "CreateClassProtectedPropertyVar", OpCreateClassProtectedPropertyConst: "CreateClassProtectedPropertyConst",
	OpCreateClassPrivatePropertyVar: "CreateClassPrivatePropertyVar", OpCreateClassPrivatePropertyConst: "CreateClassPrivatePropertyConst",
	OpCreateClassPublicStaticPropertyVar: "CreateClassPublicStaticPropertyVar", OpCreateClassPublicStaticPropertyConst: "CreateClassPublicStaticPropertyConst",
	OpCreateClassProtectedStaticPropertyVar: "CreateClassProtectedStaticPropertyVar", OpCreateClassProtectedStaticPropertyConst: "CreateClassProtectedStaticPropertyConst",
	OpCreateClassPrivateStaticPropertyVar: "CreateClassPrivateStaticPropertyVar", OpCreateClassPrivateStaticPropertyConst: "CreateClassPrivateStaticPropertyConst",
	OpCreateClassPublicMethod: "CreateClassPublicMethod", OpCreateClassProtectedMethod: "CreateClassProtectedMethod",
	OpCreateClassPrivateMethod: "CreateClassPrivateMethod", OpCreateClassPublicStaticMethod: "CreateClassPublicStaticMethod",
	OpCreateClassProtectedStaticMethod: "CreateClassProtectedStaticMethod", OpCreateClassPrivateStaticMethod: "CreateClassPrivateStaticMethod",
	OpNewObject: "NewObject", OpCreateObjectLiteral: "CreateObjectLiteral", OpCreateObjectLiteralProperty: "CreateObjectLiteralProperty",
	OpNewArray: "NewArray", OpArrayPush: "ArrayPush", OpArraySpread: "ArraySpread", OpObjectSpread: "ObjectSpread",
	OpSetProperty: "SetProperty", OpGetProperty: "GetProperty",
	OpSetPropertyDynamic: "SetPropertyDynamic", OpGetPropertyDynamic: "GetPropertyDynamic",
	OpGetObjectLength: "GetObjectLength", OpEnumKeys: "EnumKeys",
	OpGetThis: "GetThis", OpLoadThisProperty: "LoadThisProperty", OpStoreThisProperty: "StoreThisProperty",
	OpGetParentObject: "GetParentObject",
	OpTry: "Try", OpEndTry: "EndTry", OpEndFinally: "EndFinally", OpThrow: "Throw",
	OpLoadExceptionValue: "LoadExceptionValue",
	OpCreatePromise: "CreatePromise", OpAwait: "Await", OpSetExecutionContext: "SetExecutionContext",
	OpPushLexicalEnv: "PushLexicalEnv", OpPopLexicalEnv: "PopLexicalEnv",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "Unknown"
}

// Instruction is the fixed 4-tuple (op, a, b, c) operand format.
type Instruction struct {
	Op   Op
	A, B, C uint8
}

// UpvalueDescriptor follows a CreateClosure instruction, one per captured
// upvalue.
type UpvalueDescriptor struct {
	IsLocal bool
	Index   uint8
}

// Chunk owns one function's (or the entry script's) code and constant pool.
type Chunk struct {
	Code        []Instruction
	Upvalues    map[int][]UpvalueDescriptor // instruction index of CreateClosure -> descriptors
	Constants   []values.Value
	Arity       int
	Name        string
	MaxLocals   int
}

func New(name string) *Chunk {
	return &Chunk{Name: name, Upvalues: make(map[int][]UpvalueDescriptor)}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(ins Instruction) int {
	c.Code = append(c.Code, ins)
	return len(c.Code) - 1
}

// AddConstant interns v into the chunk's constant pool, returning its index.
// Numbers and strings are deduplicated; other kinds are always appended
// fresh since they carry identity.
func (c *Chunk) AddConstant(v values.Value) int {
	if v.Kind == values.KindNumber || v.Kind == values.KindString {
		for i, existing := range c.Constants {
			if existing.Kind == v.Kind && existing.Num == v.Num && existing.Str == v.Str {
				return i
			}
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of emitted instructions, used by the compiler to
// compute jump offsets.
func (c *Chunk) Len() int { return len(c.Code) }

// Module aggregates chunks, a module-level constant pool (used for function
// references), the entry-chunk index, and a version tag.
type Module struct {
	Chunks           []*Chunk
	Constants        []values.Value
	EntryChunkIndex  uint32
	Version          uint32
}

func NewModule() *Module {
	return &Module{Version: 1}
}

// AddChunk registers a chunk and returns its index within the module.
func (m *Module) AddChunk(c *Chunk) uint32 {
	m.Chunks = append(m.Chunks, c)
	return uint32(len(m.Chunks) - 1)
}

// AddConstant appends v to the module-level constant pool and returns its
// index; equal values are not deduplicated.
func (m *Module) AddConstant(v values.Value) uint32 {
	m.Constants = append(m.Constants, v)
	return uint32(len(m.Constants) - 1)
}

func (m *Module) Chunk(index uint32) *Chunk {
	if int(index) >= len(m.Chunks) {
		return nil
	}
	return m.Chunks[index]
}
