// Package ptb builds Sui programmable transaction blocks and serializes
// them as TransactionKind bytes for a sponsor to wrap with gas.
package ptb

import (
	"context"
	"errors"
	"fmt"

	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/sui/bcs"
	"github.com/mr-tron/base58"
)

type argumentKind int

const (
	argGasCoin argumentKind = iota
	argInput
	argResult
	argNestedResult
)

// Argument refers to a transaction input or the result of an earlier command.
type Argument struct {
	kind   argumentKind
	index  uint16
	nested uint16
}

// GasCoin is the coin paying for gas. Sponsored transactions must not touch it.
var GasCoin = Argument{kind: argGasCoin}

func (a Argument) String() string {
	switch a.kind {
	case argGasCoin:
		return "GasCoin"
	case argInput:
		return fmt.Sprintf("Input(%d)", a.index)
	case argResult:
		return fmt.Sprintf("Result(%d)", a.index)
	default:
		return fmt.Sprintf("NestedResult(%d,%d)", a.index, a.nested)
	}
}

func (a Argument) encode(e *bcs.Encoder) {
	e.Variant(int(a.kind))
	switch a.kind {
	case argInput, argResult:
		e.U16(a.index)
	case argNestedResult:
		e.U16(a.index)
		e.U16(a.nested)
	}
}

type inputKind int

const (
	inputPure inputKind = iota
	inputObject
	inputOwnedRef
)

type input struct {
	kind     inputKind
	pure     []byte
	objectID string
	ref      sui.ObjectRef
}

type command interface {
	encode(e *bcs.Encoder)
	describe() string
}

type splitCoins struct {
	coin    Argument
	amounts []Argument
}

func (c splitCoins) encode(e *bcs.Encoder) {
	e.Variant(2)
	c.coin.encode(e)
	e.ULEB128(uint64(len(c.amounts)))
	for _, a := range c.amounts {
		a.encode(e)
	}
}

func (c splitCoins) describe() string {
	return fmt.Sprintf("SplitCoins(%s, %v)", c.coin, c.amounts)
}

type moveCall struct {
	target   sui.MoveTarget
	pkgBytes [sui.AddressLength]byte
	args     []Argument
}

func (c moveCall) encode(e *bcs.Encoder) {
	e.Variant(0)
	e.Fixed(c.pkgBytes[:])
	e.String(c.target.Module)
	e.String(c.target.Function)
	e.ULEB128(0) // type arguments
	e.ULEB128(uint64(len(c.args)))
	for _, a := range c.args {
		a.encode(e)
	}
}

func (c moveCall) describe() string {
	return fmt.Sprintf("MoveCall(%s, %v)", c.target, c.args)
}

// Resolver looks up objects so unresolved inputs can be turned into
// owned references or shared-object arguments.
type Resolver interface {
	GetObjects(ctx context.Context, ids []string, opts sui.ObjectDataOptions) ([]sui.ObjectData, error)
}

// Builder accumulates inputs and commands. The first error sticks and is
// returned from Build.
type Builder struct {
	inputs   []input
	commands []command
	objects  map[string]uint16
	targets  []string
	err      error
}

// New returns an empty transaction builder.
func New() *Builder {
	return &Builder{objects: make(map[string]uint16)}
}

// Err returns the first construction error, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) addInput(in input) Argument {
	if len(b.inputs) >= 1<<16 {
		b.setErr(errors.New("too many inputs"))
		return Argument{kind: argInput}
	}
	b.inputs = append(b.inputs, in)
	return Argument{kind: argInput, index: uint16(len(b.inputs) - 1)}
}

// Object adds an object input by ID, resolved at Build time.
// Repeated IDs share one input slot.
func (b *Builder) Object(id string) Argument {
	norm, err := sui.NormalizeAddress(id)
	if err != nil {
		b.setErr(fmt.Errorf("object input: %w", err))
		return Argument{kind: argInput}
	}
	if idx, ok := b.objects[norm]; ok {
		return Argument{kind: argInput, index: idx}
	}
	arg := b.addInput(input{kind: inputObject, objectID: norm})
	b.objects[norm] = arg.index
	return arg
}

// OwnedObject adds an owned object input whose reference is already known.
func (b *Builder) OwnedObject(ref sui.ObjectRef) Argument {
	norm, err := sui.NormalizeAddress(ref.ObjectID)
	if err != nil {
		b.setErr(fmt.Errorf("owned object input: %w", err))
		return Argument{kind: argInput}
	}
	if idx, ok := b.objects[norm]; ok {
		return Argument{kind: argInput, index: idx}
	}
	ref.ObjectID = norm
	arg := b.addInput(input{kind: inputOwnedRef, ref: ref})
	b.objects[norm] = arg.index
	return arg
}

// PureU64 adds a u64 pure input.
func (b *Builder) PureU64(v uint64) Argument {
	return b.addInput(input{kind: inputPure, pure: bcs.U64Bytes(v)})
}

// SplitCoins splits each amount off coin and returns one nested result per amount.
func (b *Builder) SplitCoins(coin Argument, amounts ...Argument) []Argument {
	if len(amounts) == 0 {
		b.setErr(errors.New("split coins: no amounts"))
		return nil
	}
	idx := uint16(len(b.commands))
	b.commands = append(b.commands, splitCoins{coin: coin, amounts: amounts})
	out := make([]Argument, len(amounts))
	for i := range amounts {
		out[i] = Argument{kind: argNestedResult, index: idx, nested: uint16(i)}
	}
	return out
}

// MoveCall invokes target ("0xpkg::module::function") with args.
func (b *Builder) MoveCall(target string, args ...Argument) Argument {
	mt, err := sui.ParseMoveTarget(target)
	if err != nil {
		b.setErr(err)
		return Argument{kind: argResult}
	}
	pkg, err := sui.AddressBytes(mt.Package)
	if err != nil {
		b.setErr(err)
		return Argument{kind: argResult}
	}
	idx := uint16(len(b.commands))
	b.commands = append(b.commands, moveCall{target: mt, pkgBytes: pkg, args: args})
	b.targets = append(b.targets, mt.String())
	return Argument{kind: argResult, index: idx}
}

// MoveCallTargets lists the entry functions the transaction calls, in command order.
func (b *Builder) MoveCallTargets() []string {
	out := make([]string, len(b.targets))
	copy(out, b.targets)
	return out
}

// Commands describes each command, for logs.
func (b *Builder) Commands() []string {
	out := make([]string, len(b.commands))
	for i, c := range b.commands {
		out[i] = c.describe()
	}
	return out
}

// Build resolves object inputs through r and returns the BCS bytes of
// TransactionKind::ProgrammableTransaction.
func (b *Builder) Build(ctx context.Context, r Resolver) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.commands) == 0 {
		return nil, errors.New("transaction has no commands")
	}

	resolved, err := b.resolve(ctx, r)
	if err != nil {
		return nil, err
	}

	var e bcs.Encoder
	e.Variant(0) // ProgrammableTransaction
	e.ULEB128(uint64(len(b.inputs)))
	for i, in := range b.inputs {
		if err := encodeInput(&e, in, resolved[i]); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	e.ULEB128(uint64(len(b.commands)))
	for _, c := range b.commands {
		c.encode(&e)
	}
	return e.Bytes(), nil
}

func (b *Builder) resolve(ctx context.Context, r Resolver) (map[int]*sui.ObjectData, error) {
	var ids []string
	var positions []int
	for i, in := range b.inputs {
		if in.kind == inputObject {
			ids = append(ids, in.objectID)
			positions = append(positions, i)
		}
	}
	out := make(map[int]*sui.ObjectData, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if r == nil {
		return nil, errors.New("object inputs need a resolver")
	}
	objs, err := r.GetObjects(ctx, ids, sui.ObjectDataOptions{ShowOwner: true})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve object inputs: %w", err)
	}
	if len(objs) != len(ids) {
		return nil, fmt.Errorf("resolver returned %d objects for %d inputs", len(objs), len(ids))
	}
	for i := range objs {
		out[positions[i]] = &objs[i]
	}
	return out, nil
}

func encodeInput(e *bcs.Encoder, in input, obj *sui.ObjectData) error {
	switch in.kind {
	case inputPure:
		e.Variant(0)
		e.ByteVector(in.pure)
		return nil
	case inputOwnedRef:
		e.Variant(1)
		return encodeOwnedRef(e, in.ref)
	}

	if obj == nil || obj.Owner == nil {
		return fmt.Errorf("object %s resolved without owner", in.objectID)
	}
	switch obj.Owner.Kind {
	case sui.OwnerShared:
		id, err := sui.AddressBytes(in.objectID)
		if err != nil {
			return err
		}
		e.Variant(1) // CallArg::Object
		e.Variant(1) // ObjectArg::SharedObject
		e.Fixed(id[:])
		e.U64(obj.Owner.InitialSharedVersion)
		e.Bool(true)
		return nil
	case sui.OwnerAddress, sui.OwnerObject, sui.OwnerImmutable:
		ref := obj.Ref()
		ref.ObjectID = in.objectID
		e.Variant(1)
		return encodeOwnedRef(e, ref)
	default:
		return fmt.Errorf("object %s has unsupported owner %s", in.objectID, obj.Owner.Kind)
	}
}

func encodeOwnedRef(e *bcs.Encoder, ref sui.ObjectRef) error {
	id, err := sui.AddressBytes(ref.ObjectID)
	if err != nil {
		return err
	}
	digest, err := base58.Decode(ref.Digest)
	if err != nil {
		return fmt.Errorf("object %s: invalid digest %q: %w", ref.ObjectID, ref.Digest, err)
	}
	if len(digest) != 32 {
		return fmt.Errorf("object %s: digest is %d bytes, want 32", ref.ObjectID, len(digest))
	}
	e.Variant(0) // ObjectArg::ImmOrOwnedObject
	e.Fixed(id[:])
	e.U64(ref.Version)
	e.ByteVector(digest)
	return nil
}
