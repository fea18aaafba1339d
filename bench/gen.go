package bench

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/tidwall/btree"

	"github.com/cosmos/treapx"
)

// Generator describes a random op log. Ops are generated against a live VersionStore so every op is
// valid for the version it names and every answer is known when the next op is obfuscated.
type Generator struct {
	Seed uint64
	Ops  int
	// Values are drawn from [-MaxValue, MaxValue].
	MaxValue int64
	// Relative weights of each op kind.
	InsertWeight   int
	DeleteWeight   int
	ReverseWeight  int
	RangeSumWeight int
	// RecentBias is the probability that an op targets the latest version rather than a random one.
	RecentBias       float64
	Online           bool
	VersionedQueries bool
	// Text also writes the log in the line-oriented text form.
	Text bool
}

type generator struct {
	Generator
	log   zerolog.Logger
	rng   *rand.Rand
	store *treapx.VersionStore
	codec *OnlineCodec
	// lengths of every published non-empty version
	nonEmpty btree.Map[treapx.VersionID, int]
	answers  hash.Hash
	queries  int
}

func (g Generator) validate() error {
	if g.Ops <= 0 {
		return fmt.Errorf("ops must be positive, got %d", g.Ops)
	}
	if g.MaxValue <= 0 {
		return fmt.Errorf("max value must be positive, got %d", g.MaxValue)
	}
	if g.InsertWeight <= 0 {
		return fmt.Errorf("insert weight must be positive, got %d", g.InsertWeight)
	}
	if g.DeleteWeight < 0 || g.ReverseWeight < 0 || g.RangeSumWeight < 0 {
		return fmt.Errorf("op weights must not be negative")
	}
	if g.RecentBias < 0 || g.RecentBias > 1 {
		return fmt.Errorf("recent bias must be in [0, 1], got %f", g.RecentBias)
	}
	return nil
}

// Generate writes ops.bin and ops_info.json (and ops.txt when Text is set) to outDir.
func (g Generator) Generate(outDir string, log zerolog.Logger) (OpsInfo, error) {
	if err := g.validate(); err != nil {
		return OpsInfo{}, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return OpsInfo{}, err
	}

	writer, err := CreateOpLog(opsFilename(outDir))
	if err != nil {
		return OpsInfo{}, err
	}
	var text *bufio.Writer
	if g.Text {
		textFile, err := os.Create(opsTextFilename(outDir))
		if err != nil {
			_ = writer.Close()
			return OpsInfo{}, err
		}
		defer textFile.Close()
		text = bufio.NewWriter(textFile)
	}

	gen := &generator{
		Generator: g,
		log:       log,
		rng:       rand.New(rand.NewPCG(g.Seed, g.Seed+1)),
		store:     treapx.NewVersionStore(treapx.Options{Seed: g.Seed}),
		codec:     NewOnlineCodec(g.Online),
		answers:   sha256.New(),
	}

	since := time.Now()
	for i := 0; i < g.Ops; i++ {
		if i%100_000 == 0 && i > 0 {
			log.Info().Msgf("generated %s ops in %s; %s ops/s; versions=%s",
				humanize.Comma(int64(i)),
				time.Since(since),
				humanize.Comma(int64(100_000/time.Since(since).Seconds())),
				humanize.Comma(int64(gen.store.NumVersions())))
			since = time.Now()
		}

		wire, err := gen.next()
		if err != nil {
			_ = writer.Close()
			return OpsInfo{}, fmt.Errorf("op %d: %w", i, err)
		}
		if err := writer.Write(wire); err != nil {
			_ = writer.Close()
			return OpsInfo{}, err
		}
		if text != nil {
			if err := WriteTextOp(text, wire); err != nil {
				_ = writer.Close()
				return OpsInfo{}, err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return OpsInfo{}, err
	}
	if text != nil {
		if err := text.Flush(); err != nil {
			return OpsInfo{}, err
		}
	}

	info := OpsInfo{
		Ops:              g.Ops,
		Seed:             g.Seed,
		Online:           g.Online,
		VersionedQueries: g.VersionedQueries,
		Versions:         gen.store.NumVersions(),
		Queries:          gen.queries,
		AnswersHash:      hex.EncodeToString(gen.answers.Sum(nil)),
	}
	if err := writeOpsInfo(outDir, info); err != nil {
		return OpsInfo{}, err
	}
	log.Info().
		Int("ops", info.Ops).
		Int("versions", info.Versions).
		Int("queries", info.Queries).
		Str("dir", outDir).
		Msg("wrote op log")
	return info, nil
}

// next picks, applies and encodes one op.
func (g *generator) next() (Op, error) {
	op := g.pick()
	wire := g.codec.Encode(op)

	res, err := Apply(g.store, op, g.VersionedQueries)
	if err != nil {
		return Op{}, err
	}
	if res.Published {
		n, err := g.store.Len(res.Version)
		if err != nil {
			return Op{}, err
		}
		if n > 0 {
			g.nonEmpty.Set(res.Version, n)
		}
	}
	if res.HasAnswer {
		g.queries++
		g.codec.Emit(res.Answer)
		fmt.Fprintf(g.answers, "%d\n", res.Answer)
	}
	return wire, nil
}

func (g *generator) pick() Op {
	total := g.InsertWeight + g.DeleteWeight + g.ReverseWeight + g.RangeSumWeight
	roll := g.rng.IntN(total)
	if g.nonEmpty.Len() == 0 || roll < g.InsertWeight {
		v := g.store.Latest()
		if g.rng.Float64() >= g.RecentBias {
			v = treapx.VersionID(g.rng.IntN(int(v) + 1))
		}
		n, _ := g.store.Len(v)
		return Op{
			Version: v,
			Code:    OpInsert,
			A:       int64(g.rng.IntN(n+1) + 1),
			B:       g.rng.Int64N(2*g.MaxValue+1) - g.MaxValue,
		}
	}

	v, n := g.pickNonEmpty()
	roll -= g.InsertWeight
	if roll < g.DeleteWeight {
		return Op{Version: v, Code: OpDelete, A: int64(g.rng.IntN(n) + 1)}
	}
	roll -= g.DeleteWeight

	l := g.rng.IntN(n) + 1
	r := l + g.rng.IntN(n-l+1)
	code := OpRangeSum
	if roll < g.ReverseWeight {
		code = OpReverse
	}
	return Op{Version: v, Code: code, A: int64(l), B: int64(r)}
}

func (g *generator) pickNonEmpty() (treapx.VersionID, int) {
	if g.rng.Float64() < g.RecentBias {
		v, n, _ := g.nonEmpty.Max()
		return v, n
	}
	v, n, _ := g.nonEmpty.GetAt(g.rng.IntN(g.nonEmpty.Len()))
	return v, n
}
