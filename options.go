package treapx

import "log/slog"

type Options struct {
	// Seed seeds the priority generator. Zero picks a random seed; a fixed seed makes tree shapes
	// reproducible, which only matters for debugging since results never depend on shape.
	Seed uint64 `json:"seed" yaml:"seed"`
	// Arena allocates nodes from chunks of ArenaChunk nodes instead of one allocation per node.
	Arena      bool `json:"arena" yaml:"arena"`
	ArenaChunk int  `json:"arena_chunk" yaml:"arena_chunk"`

	Logger  *slog.Logger `json:"-" yaml:"-"`
	Metrics *Metrics     `json:"-" yaml:"-"`
}
