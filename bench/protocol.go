package bench

// OnlineCodec implements the online form of the op protocol: the arguments of every op are XORed with
// the most recently emitted answer, so an op cannot be decoded before the previous query is answered.
// Versions and op codes are sent in the clear. The disabled codec passes ops through unchanged.
type OnlineCodec struct {
	enabled bool
	last    int64
}

func NewOnlineCodec(enabled bool) *OnlineCodec {
	return &OnlineCodec{enabled: enabled}
}

func (c *OnlineCodec) mask(op Op) Op {
	if !c.enabled {
		return op
	}
	op.A ^= c.last
	op.B ^= c.last
	return op
}

// Encode obfuscates a plain op for the wire.
func (c *OnlineCodec) Encode(op Op) Op {
	return c.mask(op)
}

// Decode recovers the plain op from its wire form.
func (c *OnlineCodec) Decode(op Op) Op {
	return c.mask(op)
}

// Emit records an answer; it keys every following op.
func (c *OnlineCodec) Emit(answer int64) {
	c.last = answer
}

func (c *OnlineCodec) Last() int64 {
	return c.last
}
