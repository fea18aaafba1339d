package bench

import "fmt"

// SmallGenerator is a quick mixed workload, mostly building one long sequence.
func SmallGenerator(ops int) Generator {
	return Generator{
		Ops:            ops,
		MaxValue:       1_000_000,
		InsertWeight:   50,
		DeleteWeight:   10,
		ReverseWeight:  20,
		RangeSumWeight: 20,
		RecentBias:     0.9,
	}
}

// BranchingGenerator targets random old versions, growing a wide version tree.
func BranchingGenerator(ops int) Generator {
	gen := SmallGenerator(ops)
	gen.RecentBias = 0.2
	return gen
}

// QueryHeavyGenerator is a read-mostly workload in the online protocol with versioned queries.
func QueryHeavyGenerator(ops int) Generator {
	return Generator{
		Ops:              ops,
		MaxValue:         1_000_000_000,
		InsertWeight:     25,
		DeleteWeight:     5,
		ReverseWeight:    10,
		RangeSumWeight:   60,
		RecentBias:       0.7,
		Online:           true,
		VersionedQueries: true,
	}
}

// ReverseHeavyGenerator stresses lazy reversal propagation.
func ReverseHeavyGenerator(ops int) Generator {
	return Generator{
		Ops:            ops,
		MaxValue:       1_000,
		InsertWeight:   30,
		DeleteWeight:   5,
		ReverseWeight:  50,
		RangeSumWeight: 15,
		RecentBias:     0.8,
	}
}

func GeneratorProfile(name string, ops int) (Generator, error) {
	switch name {
	case "small":
		return SmallGenerator(ops), nil
	case "branching":
		return BranchingGenerator(ops), nil
	case "query-heavy":
		return QueryHeavyGenerator(ops), nil
	case "reverse-heavy":
		return ReverseHeavyGenerator(ops), nil
	default:
		return Generator{}, fmt.Errorf("unknown generator profile: %s", name)
	}
}
