// Package treapx implements a persistent sequence of integers. Every edit publishes a new version
// and leaves all earlier versions valid and unchanged; versions share every subtree an edit did not
// touch.
//
// The sequence is kept in a treap ordered by position. Edits are built from two primitives, split
// and merge, that copy only the nodes on their descent path. Reversal of a range is recorded as a
// lazy flag on a single copied node and pushed into copies of the children as later operations
// descend.
package treapx

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosmos/treapx/internal"
)

// VersionID names a published version. Version 0 is the empty sequence.
type VersionID uint32

const (
	opInsert   = "insert"
	opDelete   = "delete"
	opReverse  = "reverse"
	opRangeSum = "range_sum"
	opPeek     = "peek"
)

// versionTable is never written after it is stored; publishing swaps in a new header.
type versionTable struct {
	roots []*internal.Node
}

// VersionStore is the version table together with the node factory and priority source used to
// build new versions.
//
// Writes (Insert, Delete, Reverse, RangeSum) are serialized. A version becomes visible only once its
// whole tree is built, and published nodes are never written, so reads (PeekSum, Len, Get, Values,
// Verify, RenderDot) take no lock and may run concurrently with a writer.
type VersionStore struct {
	writeMutex sync.Mutex
	table      atomic.Pointer[versionTable]
	store      internal.NodeFactory
	rng        *rand.Rand
	logger     *slog.Logger
	metrics    *Metrics
}

type Stats struct {
	Versions       int
	NodesAllocated uint64
}

func NewVersionStore(opts Options) *VersionStore {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var store internal.NodeFactory = &internal.MemStore{}
	if opts.Arena {
		store = internal.NewArena(opts.ArenaChunk)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &VersionStore{
		store:   store,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger:  logger,
		metrics: opts.Metrics,
	}
	s.table.Store(&versionTable{roots: []*internal.Node{nil}})
	if s.metrics != nil {
		s.metrics.Versions.Set(1)
	}
	return s
}

func (s *VersionStore) root(v VersionID) (*internal.Node, error) {
	roots := s.table.Load().roots
	if int(v) >= len(roots) {
		return nil, fmt.Errorf("%w: %d (latest is %d)", ErrInvalidVersion, v, len(roots)-1)
	}
	return roots[v], nil
}

// publish makes root visible as a new version. Callers must hold writeMutex.
func (s *VersionStore) publish(op string, parent VersionID, root *internal.Node) VersionID {
	roots := append(s.table.Load().roots, root)
	s.table.Store(&versionTable{roots: roots})
	version := VersionID(len(roots) - 1)
	s.logger.Debug("published version", "op", op, "version", version, "parent", parent, "size", root.Size())
	return version
}

func (s *VersionStore) fail(op string, err error) error {
	s.metrics.failed(op)
	return err
}

// Latest returns the most recently published version.
func (s *VersionStore) Latest() VersionID {
	return VersionID(len(s.table.Load().roots) - 1)
}

// NumVersions returns the number of published versions, including version 0.
func (s *VersionStore) NumVersions() int {
	return len(s.table.Load().roots)
}

func (s *VersionStore) Stats() Stats {
	return Stats{
		Versions:       s.NumVersions(),
		NodesAllocated: s.store.Allocated(),
	}
}

// Insert publishes a copy of v with x inserted so that it becomes the element at position p.
// p ranges over [1, Len(v)+1].
func (s *VersionStore) Insert(v VersionID, p int, x int64) (VersionID, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	start, allocated := time.Now(), s.store.Allocated()

	root, err := s.root(v)
	if err != nil {
		return 0, s.fail(opInsert, err)
	}
	if p < 1 || p > root.Size()+1 {
		return 0, s.fail(opInsert, &BoundsError{Op: opInsert, Version: v, Lo: p, Hi: p, Len: root.Size()})
	}

	left, right := internal.Split(s.store, root, p-1)
	leaf := s.store.NewLeaf(x, s.rng.Uint32())
	newRoot := internal.Merge(s.store, internal.Merge(s.store, left, leaf), right)

	version := s.publish(opInsert, v, newRoot)
	s.metrics.observe(opInsert, start, s.store.Allocated()-allocated, int(version)+1)
	return version, nil
}

// Delete publishes a copy of v without the element at position p.
// The element stays reachable from v and every other version that contains it.
func (s *VersionStore) Delete(v VersionID, p int) (VersionID, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	start, allocated := time.Now(), s.store.Allocated()

	root, err := s.root(v)
	if err != nil {
		return 0, s.fail(opDelete, err)
	}
	if p < 1 || p > root.Size() {
		return 0, s.fail(opDelete, &BoundsError{Op: opDelete, Version: v, Lo: p, Hi: p, Len: root.Size()})
	}

	left, rest := internal.Split(s.store, root, p-1)
	_, right := internal.Split(s.store, rest, 1)
	newRoot := internal.Merge(s.store, left, right)

	version := s.publish(opDelete, v, newRoot)
	s.metrics.observe(opDelete, start, s.store.Allocated()-allocated, int(version)+1)
	return version, nil
}

// Reverse publishes a copy of v with positions l through r in reverse order.
func (s *VersionStore) Reverse(v VersionID, l, r int) (VersionID, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	start, allocated := time.Now(), s.store.Allocated()

	root, err := s.checkRange(opReverse, v, l, r)
	if err != nil {
		return 0, s.fail(opReverse, err)
	}

	before, rest := internal.Split(s.store, root, l-1)
	middle, after := internal.Split(s.store, rest, r-l+1)
	middle = internal.ToggleReversed(s.store, middle)
	newRoot := internal.Merge(s.store, internal.Merge(s.store, before, middle), after)

	version := s.publish(opReverse, v, newRoot)
	s.metrics.observe(opReverse, start, s.store.Allocated()-allocated, int(version)+1)
	return version, nil
}

// RangeSum returns the sum of positions l through r of v and publishes a new version with the
// same content as v. Use it when the calling protocol numbers queries as versions; PeekSum answers
// the same question without touching the version table.
func (s *VersionStore) RangeSum(v VersionID, l, r int) (int64, VersionID, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	start, allocated := time.Now(), s.store.Allocated()

	root, err := s.checkRange(opRangeSum, v, l, r)
	if err != nil {
		return 0, 0, s.fail(opRangeSum, err)
	}

	_, rest := internal.Split(s.store, root, l-1)
	middle, _ := internal.Split(s.store, rest, r-l+1)
	answer := middle.Sum()

	// the split pieces are discarded; the new version aliases v's root
	version := s.publish(opRangeSum, v, root)
	s.metrics.observe(opRangeSum, start, s.store.Allocated()-allocated, int(version)+1)
	return answer, version, nil
}

// PeekSum returns the sum of positions l through r of v without copying nodes or publishing a
// version.
func (s *VersionStore) PeekSum(v VersionID, l, r int) (int64, error) {
	start := time.Now()
	root, err := s.checkRange(opPeek, v, l, r)
	if err != nil {
		return 0, s.fail(opPeek, err)
	}
	answer := internal.RangeSum(root, l-1, r)
	s.metrics.observe(opPeek, start, 0, 0)
	return answer, nil
}

func (s *VersionStore) checkRange(op string, v VersionID, l, r int) (*internal.Node, error) {
	root, err := s.root(v)
	if err != nil {
		return nil, err
	}
	if l < 1 || l > r || r > root.Size() {
		return nil, &BoundsError{Op: op, Version: v, Lo: l, Hi: r, Len: root.Size()}
	}
	return root, nil
}

// Len returns the number of elements in v.
func (s *VersionStore) Len(v VersionID) (int, error) {
	root, err := s.root(v)
	if err != nil {
		return 0, err
	}
	return root.Size(), nil
}

// Get returns the element at position p of v.
func (s *VersionStore) Get(v VersionID, p int) (int64, error) {
	root, err := s.root(v)
	if err != nil {
		return 0, err
	}
	if p < 1 || p > root.Size() {
		return 0, &BoundsError{Op: "get", Version: v, Lo: p, Hi: p, Len: root.Size()}
	}
	return internal.At(root, p-1), nil
}

// Values returns the whole sequence of v.
func (s *VersionStore) Values(v VersionID) ([]int64, error) {
	root, err := s.root(v)
	if err != nil {
		return nil, err
	}
	return internal.Values(root), nil
}

// Verify checks the size, sum and heap invariants of every node reachable from v.
func (s *VersionStore) Verify(v VersionID) error {
	root, err := s.root(v)
	if err != nil {
		return err
	}
	if err := internal.Verify(root); err != nil {
		return fmt.Errorf("version %d: %w", v, err)
	}
	return nil
}

// Depth returns the height of v's tree. It is reported for diagnostics only.
func (s *VersionStore) Depth(v VersionID) (int, error) {
	root, err := s.root(v)
	if err != nil {
		return 0, err
	}
	return internal.Depth(root), nil
}

// SharedNodes returns the number of distinct nodes reachable from the given versions.
func (s *VersionStore) SharedNodes(versions ...VersionID) (int, error) {
	roots := make([]*internal.Node, 0, len(versions))
	for _, v := range versions {
		root, err := s.root(v)
		if err != nil {
			return 0, err
		}
		roots = append(roots, root)
	}
	return internal.CountNodes(roots...), nil
}

// RenderDot writes a DOT graph of the given versions, or of the latest version when none are given.
// Subtrees shared between versions appear once.
func (s *VersionStore) RenderDot(w io.Writer, versions ...VersionID) error {
	if len(versions) == 0 {
		versions = []VersionID{s.Latest()}
	}
	roots := make([]internal.GraphRoot, 0, len(versions))
	for _, v := range versions {
		root, err := s.root(v)
		if err != nil {
			return err
		}
		roots = append(roots, internal.GraphRoot{Label: fmt.Sprintf("v%d", v), Root: root})
	}
	return internal.RenderDotGraph(w, roots...)
}
