package bench

import (
	"encoding/binary"
	"fmt"

	"github.com/cosmos/treapx"
)

type OpCode uint32

const (
	OpInsert   OpCode = 1
	OpDelete   OpCode = 2
	OpReverse  OpCode = 3
	OpRangeSum OpCode = 4
)

func (c OpCode) String() string {
	switch c {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpReverse:
		return "reverse"
	case OpRangeSum:
		return "range_sum"
	default:
		return fmt.Sprintf("OpCode(%d)", uint32(c))
	}
}

func (c OpCode) Valid() bool {
	return c >= OpInsert && c <= OpRangeSum
}

// Op is one operation record. A and B hold the operation's arguments in order:
// insert (p, x), delete (p, unused), reverse and range sum (l, r).
type Op struct {
	Version treapx.VersionID
	Code    OpCode
	A, B    int64
}

func (o Op) String() string {
	return fmt.Sprintf("%d %d %d %d", o.Version, o.Code, o.A, o.B)
}

// RecordSize is the width of an encoded Op:
// version u32 | op u32 | a i64 | b i64 | 8 reserved bytes, little endian.
const RecordSize = 32

func encodeOp(buf []byte, op Op) {
	_ = buf[RecordSize-1]
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op.Version))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(op.Code))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(op.A))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(op.B))
	clear(buf[24:RecordSize])
}

func decodeOp(buf []byte) (Op, error) {
	if len(buf) < RecordSize {
		return Op{}, fmt.Errorf("short op record: %d bytes", len(buf))
	}
	op := Op{
		Version: treapx.VersionID(binary.LittleEndian.Uint32(buf[0:4])),
		Code:    OpCode(binary.LittleEndian.Uint32(buf[4:8])),
		A:       int64(binary.LittleEndian.Uint64(buf[8:16])),
		B:       int64(binary.LittleEndian.Uint64(buf[16:24])),
	}
	if !op.Code.Valid() {
		return Op{}, fmt.Errorf("unknown op code %d", uint32(op.Code))
	}
	return op, nil
}

// Result is the outcome of applying one Op.
type Result struct {
	// Version is the version the op published, when Published is set.
	Version   treapx.VersionID
	Published bool
	// Answer is the range sum, when HasAnswer is set.
	Answer    int64
	HasAnswer bool
}

// Apply runs op against store. With versionedQueries, range sums publish a version like every other
// op; otherwise they are answered with PeekSum and publish nothing.
func Apply(store *treapx.VersionStore, op Op, versionedQueries bool) (Result, error) {
	var (
		res Result
		err error
	)
	switch op.Code {
	case OpInsert:
		res.Version, err = store.Insert(op.Version, int(op.A), op.B)
		res.Published = true
	case OpDelete:
		res.Version, err = store.Delete(op.Version, int(op.A))
		res.Published = true
	case OpReverse:
		res.Version, err = store.Reverse(op.Version, int(op.A), int(op.B))
		res.Published = true
	case OpRangeSum:
		res.HasAnswer = true
		if versionedQueries {
			res.Answer, res.Version, err = store.RangeSum(op.Version, int(op.A), int(op.B))
			res.Published = true
		} else {
			res.Answer, err = store.PeekSum(op.Version, int(op.A), int(op.B))
		}
	default:
		return Result{}, fmt.Errorf("unknown op code %d", uint32(op.Code))
	}
	if err != nil {
		return Result{}, fmt.Errorf("applying %s: %w", op.Code, err)
	}
	return res, nil
}
