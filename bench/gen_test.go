package bench

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cosmos/treapx"
)

func generate(t *testing.T, gen Generator) (string, OpsInfo) {
	t.Helper()
	dir := t.TempDir()
	info, err := gen.Generate(dir, zerolog.Nop())
	require.NoError(t, err)
	return dir, info
}

func TestGeneratorDeterminism(t *testing.T) {
	gen := SmallGenerator(2_000)
	gen.Seed = 42
	dirA, infoA := generate(t, gen)
	dirB, infoB := generate(t, gen)
	require.Equal(t, infoA, infoB)

	a, err := os.ReadFile(opsFilename(dirA))
	require.NoError(t, err)
	b, err := os.ReadFile(opsFilename(dirB))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 2_000*RecordSize)

	gen.Seed = 43
	_, infoC := generate(t, gen)
	require.NotEqual(t, infoA.AnswersHash, infoC.AnswersHash)

	read, err := ReadOpsInfo(dirA)
	require.NoError(t, err)
	require.Equal(t, infoA, read)
}

func TestGeneratorValidate(t *testing.T) {
	for _, gen := range []Generator{
		{},
		{Ops: 10},
		{Ops: 10, MaxValue: 10},
		{Ops: 10, MaxValue: 10, InsertWeight: 1, DeleteWeight: -1},
		{Ops: 10, MaxValue: 10, InsertWeight: 1, RecentBias: 2},
	} {
		_, err := gen.Generate(t.TempDir(), zerolog.Nop())
		require.Error(t, err)
	}
	_, err := GeneratorProfile("nope", 1)
	require.ErrorContains(t, err, "unknown generator profile")
}

func TestGenerateAndRun(t *testing.T) {
	for _, profile := range []string{"small", "branching", "query-heavy", "reverse-heavy"} {
		t.Run(profile, func(t *testing.T) {
			gen, err := GeneratorProfile(profile, 3_000)
			require.NoError(t, err)
			gen.Seed = 7
			gen.Text = true
			dir, info := generate(t, gen)
			require.Greater(t, info.Queries, 0)

			var answers, hashLog bytes.Buffer
			res, err := Run(context.Background(), RunParams{
				OpsDir:     dir,
				Options:    treapx.Options{Seed: 99, Arena: true},
				Answers:    &answers,
				HashLog:    &hashLog,
				HashEvery:  1_000,
				CheckEvery: 3,
				Log:        zerolog.Nop(),
			})
			require.NoError(t, err)
			require.Equal(t, info.Ops, res.Ops)
			require.Equal(t, info.Queries, res.Queries)
			require.Equal(t, info.Versions, res.Versions)
			require.Equal(t, info.AnswersHash, res.AnswersHash)
			require.Equal(t, info.Queries/3, res.Checked)

			sum := sha256.Sum256(answers.Bytes())
			require.Equal(t, info.AnswersHash, hex.EncodeToString(sum[:]))
			require.Equal(t, info.Queries, strings.Count(answers.String(), "\n"))

			lines := strings.Split(strings.TrimSpace(hashLog.String()), "\n")
			require.Len(t, lines, 3)
			for _, line := range lines {
				version, digest, ok := strings.Cut(line, "|")
				require.True(t, ok)
				_, err := strconv.ParseUint(version, 10, 32)
				require.NoError(t, err)
				require.Len(t, digest, 64)
			}
			require.NoError(t, res.Store.Verify(res.Store.Latest()))

			// the text form replays to the same answers
			textRes, err := Run(context.Background(), RunParams{OpsDir: dir, Text: true, Log: zerolog.Nop()})
			require.NoError(t, err)
			require.Equal(t, res.AnswersHash, textRes.AnswersHash)
		})
	}
}

func TestRunDetectsTampering(t *testing.T) {
	gen := QueryHeavyGenerator(500)
	gen.Seed = 3
	dir, info := generate(t, gen)

	info.AnswersHash = strings.Repeat("0", 64)
	require.NoError(t, writeOpsInfo(dir, info))
	_, err := Run(context.Background(), RunParams{OpsDir: dir, Log: zerolog.Nop()})
	require.ErrorContains(t, err, "answers hash mismatch")

	// a prefix is not compared against the full log's hash
	res, err := Run(context.Background(), RunParams{OpsDir: dir, Limit: 100, Log: zerolog.Nop()})
	require.NoError(t, err)
	require.Equal(t, 100, res.Ops)
}

func TestRunOnlineNeedsAnswers(t *testing.T) {
	gen := QueryHeavyGenerator(400)
	gen.Seed = 11
	dir, info := generate(t, gen)
	require.True(t, info.Online)

	// replaying an online log without undoing the XOR goes wrong somewhere
	info.Online = false
	require.NoError(t, writeOpsInfo(dir, info))
	_, err := Run(context.Background(), RunParams{OpsDir: dir, Log: zerolog.Nop()})
	require.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	gen := SmallGenerator(100)
	gen.Seed = 5
	dir, _ := generate(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, RunParams{OpsDir: dir, Log: zerolog.Nop()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestGeneratedOpsAreValid(t *testing.T) {
	gen := BranchingGenerator(1_000)
	gen.Seed = 21
	gen.Text = true
	dir, _ := generate(t, gen)

	file, err := os.Open(filepath.Join(dir, "ops.txt"))
	require.NoError(t, err)
	defer file.Close()
	ops, err := ReadTextOps(bufio.NewReader(file))
	require.NoError(t, err)
	require.Len(t, ops, 1_000)

	// every op names an already published version
	store := treapx.NewVersionStore(treapx.Options{Seed: 1})
	for i, op := range ops {
		require.LessOrEqual(t, op.Version, store.Latest(), "op %d", i)
		_, err := Apply(store, op, false)
		require.NoError(t, err, "op %d", i)
	}
}
