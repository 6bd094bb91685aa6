package content

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"math"
	"reflect"
)

// Hash128 is a 128-bit structural hash. It identifies content for location
// assignment and memoization, so it must be deterministic for a given tree.
type Hash128 struct {
	Hi, Lo uint64
}

func (h Hash128) IsZero() bool { return h.Hi == 0 && h.Lo == 0 }

func (h Hash128) String() string { return fmt.Sprintf("%016x%016x", h.Hi, h.Lo) }

// Combine mixes two hashes, order-dependent.
func (h Hash128) Combine(other Hash128) Hash128 {
	w := newHasher()
	w.hash128(h)
	w.hash128(other)
	return w.sum()
}

type hasher struct {
	h hash.Hash
}

func newHasher() *hasher {
	return &hasher{h: fnv.New128a()}
}

func (w *hasher) sum() Hash128 {
	var buf [16]byte
	s := w.h.Sum(buf[:0])
	return Hash128{
		Hi: binary.BigEndian.Uint64(s[0:8]),
		Lo: binary.BigEndian.Uint64(s[8:16]),
	}
}

func (w *hasher) bytes(p []byte)  { _, _ = w.h.Write(p) }
func (w *hasher) str(s string)    { w.bytes([]byte(s)) }
func (w *hasher) byteVal(b byte)  { w.bytes([]byte{b}) }
func (w *hasher) u64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.bytes(buf[:])
}
func (w *hasher) i64(v int64)     { w.u64(uint64(v)) }
func (w *hasher) f64(v float64)   { w.u64(math.Float64bits(v)) }
func (w *hasher) boolVal(b bool) {
	if b {
		w.byteVal(1)
	} else {
		w.byteVal(0)
	}
}
func (w *hasher) hash128(h Hash128) {
	w.u64(h.Hi)
	w.u64(h.Lo)
}

// hashValue feeds an arbitrary field value into the hasher. The value set is
// closed in practice (schema-typed fields), with a printf fallback for
// anything exotic. Function values hash by identity: the content tree is
// built once per compilation, so identity is stable across passes.
func (w *hasher) hashValue(v any) {
	switch t := v.(type) {
	case nil:
		w.byteVal(0)
	case string:
		w.byteVal(1)
		w.str(t)
	case bool:
		w.byteVal(2)
		w.boolVal(t)
	case int:
		w.byteVal(3)
		w.i64(int64(t))
	case int64:
		w.byteVal(3)
		w.i64(t)
	case float64:
		w.byteVal(4)
		w.f64(t)
	case []byte:
		w.byteVal(5)
		w.bytes(t)
	case *Node:
		w.byteVal(6)
		if t == nil {
			w.byteVal(0)
		} else {
			w.hash128(t.hash)
		}
	case []*Node:
		w.byteVal(7)
		w.i64(int64(len(t)))
		for _, n := range t {
			w.hashValue(n)
		}
	case []int:
		w.byteVal(8)
		w.i64(int64(len(t)))
		for _, n := range t {
			w.i64(int64(n))
		}
	case Label:
		w.byteVal(9)
		w.str(string(t))
	case Hash128:
		w.byteVal(10)
		w.hash128(t)
	case Location:
		w.byteVal(11)
		w.hash128(Hash128(t))
	case fmt.Stringer:
		w.byteVal(12)
		w.str(reflect.TypeOf(v).String())
		w.str(t.String())
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Func {
			w.byteVal(13)
			w.u64(uint64(rv.Pointer()))
			return
		}
		w.byteVal(14)
		w.str(fmt.Sprintf("%T/%v", v, v))
	}
}

// valueEqual compares two field values for selector matching and snapshot
// comparison. Nodes compare structurally through their hashes.
func valueEqual(a, b any) bool {
	if an, ok := a.(*Node); ok {
		bn, ok := b.(*Node)
		if !ok {
			return false
		}
		if an == nil || bn == nil {
			return an == bn
		}
		return an.hash == bn.hash
	}
	switch at := a.(type) {
	case string, bool, int, int64, float64, Label, Hash128, Location:
		return a == b
	case []int:
		bt, ok := b.([]int)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if at[i] != bt[i] {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
