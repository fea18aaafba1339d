package bench

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cosmos/treapx"
)

// The text form of the protocol has one op per line, "v op args...", where delete takes a single
// argument and every other op takes two. Blank lines are ignored.

func WriteTextOp(w io.Writer, op Op) error {
	var err error
	if op.Code == OpDelete {
		_, err = fmt.Fprintf(w, "%d %d %d\n", op.Version, op.Code, op.A)
	} else {
		_, err = fmt.Fprintf(w, "%d %d %d %d\n", op.Version, op.Code, op.A, op.B)
	}
	return err
}

func ReadTextOps(r io.Reader) (OpList, error) {
	var ops OpList
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		op, err := parseTextOp(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func parseTextOp(fields []string) (Op, error) {
	if len(fields) < 3 {
		return Op{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	version, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Op{}, fmt.Errorf("bad version: %w", err)
	}
	code, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Op{}, fmt.Errorf("bad op code: %w", err)
	}
	op := Op{Version: treapx.VersionID(version), Code: OpCode(code)}
	if !op.Code.Valid() {
		return Op{}, fmt.Errorf("unknown op code %d", code)
	}

	want := 4
	if op.Code == OpDelete {
		want = 3
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%s takes %d fields, got %d", op.Code, want, len(fields))
	}
	if op.A, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return Op{}, fmt.Errorf("bad argument: %w", err)
	}
	if want == 4 {
		if op.B, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
			return Op{}, fmt.Errorf("bad argument: %w", err)
		}
	}
	return op, nil
}
