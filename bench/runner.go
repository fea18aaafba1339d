package bench

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/cosmos/treapx"
)

type RunParams struct {
	// OpsDir holds ops.bin (or ops.txt when Text is set) and ops_info.json.
	OpsDir string
	Text   bool
	// Limit caps the number of ops applied; 0 applies the whole log.
	Limit   int
	Options treapx.Options

	// Answers receives one line per range sum.
	Answers io.Writer
	// HashLog receives "<version>|<answers hash>" every HashEvery ops.
	HashLog   io.Writer
	HashEvery int

	// CheckEvery re-reads every CheckEvery-th query on CheckWorkers goroutines while the run
	// continues to publish versions. 0 disables checking.
	CheckEvery   int
	CheckWorkers int

	Log zerolog.Logger
}

type RunResult struct {
	Ops         int
	Queries     int
	Checked     int
	Versions    int
	AnswersHash string
	Duration    time.Duration
	Store       *treapx.VersionStore
}

// Run replays an op log into a fresh VersionStore.
func Run(ctx context.Context, params RunParams) (RunResult, error) {
	log := params.Log
	info, err := ReadOpsInfo(params.OpsDir)
	if err != nil {
		return RunResult{}, fmt.Errorf("error reading op log info: %w", err)
	}

	var ops OpSource
	if params.Text {
		file, err := os.Open(opsTextFilename(params.OpsDir))
		if err != nil {
			return RunResult{}, err
		}
		ops, err = ReadTextOps(bufio.NewReader(file))
		_ = file.Close()
		if err != nil {
			return RunResult{}, fmt.Errorf("error reading text op log: %w", err)
		}
	} else {
		reader, err := OpenOpLog(opsFilename(params.OpsDir))
		if err != nil {
			return RunResult{}, err
		}
		defer reader.Close()
		ops = reader
	}

	target := ops.Len()
	if params.Limit > 0 && params.Limit < target {
		target = params.Limit
	}
	if params.HashEvery <= 0 {
		params.HashEvery = 10_000
	}

	r := &replay{
		params:  params,
		store:   treapx.NewVersionStore(params.Options),
		codec:   NewOnlineCodec(info.Online),
		answers: sha256.New(),
	}
	if params.CheckEvery > 0 {
		workers := params.CheckWorkers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		pool := pond.NewResultPool[int64](workers, pond.WithContext(ctx))
		defer pool.StopAndWait()
		r.checks = pool.NewGroup()
	}

	log.Info().
		Int("ops", target).
		Bool("online", info.Online).
		Bool("versioned_queries", info.VersionedQueries).
		Msg("starting run")

	start := time.Now()
	since := start
	for i := 0; i < target; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return RunResult{}, err
			}
		}
		if i%100_000 == 0 && i > 0 {
			log.Info().Msgf("applied %s ops in %s; %s ops/s; version=%d",
				humanize.Comma(int64(i)),
				time.Since(since),
				humanize.Comma(int64(100_000/time.Since(since).Seconds())),
				r.store.Latest())
			since = time.Now()
		}

		wire, err := ops.At(i)
		if err != nil {
			return RunResult{}, err
		}
		if err := r.apply(wire, info.VersionedQueries); err != nil {
			return RunResult{}, fmt.Errorf("op %d (%s): %w", i, wire, err)
		}

		if params.HashLog != nil && (i+1)%params.HashEvery == 0 {
			if _, err := fmt.Fprintf(params.HashLog, "%d|%x\n", r.store.Latest(), r.answers.Sum(nil)); err != nil {
				return RunResult{}, err
			}
		}
	}

	if r.checked > 0 {
		if _, err := r.checks.Wait(); err != nil {
			return RunResult{}, fmt.Errorf("concurrent check failed: %w", err)
		}
	}

	res := RunResult{
		Ops:         target,
		Queries:     r.queries,
		Checked:     r.checked,
		Versions:    r.store.NumVersions(),
		AnswersHash: hex.EncodeToString(r.answers.Sum(nil)),
		Duration:    time.Since(start),
		Store:       r.store,
	}

	if target == info.Ops && info.AnswersHash != "" && info.AnswersHash != res.AnswersHash {
		return res, fmt.Errorf("answers hash mismatch: expected %s, got %s", info.AnswersHash, res.AnswersHash)
	}
	if target == info.Ops && info.Versions != res.Versions {
		return res, fmt.Errorf("version count mismatch: expected %d, got %d", info.Versions, res.Versions)
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats := r.store.Stats()
	log.Info().
		Int("ops", res.Ops).
		Int("queries", res.Queries).
		Int("versions", res.Versions).
		Dur("duration", res.Duration).
		Float64("ops_per_sec", float64(res.Ops)/res.Duration.Seconds()).
		Str("nodes_allocated", humanize.Comma(int64(stats.NodesAllocated))).
		Str("mem_allocs", humanize.Bytes(memStats.Alloc)).
		Str("mem_sys", humanize.Bytes(memStats.Sys)).
		Str("mem_num_gc", humanize.Comma(int64(memStats.NumGC))).
		Msg("run complete")
	return res, nil
}

type replay struct {
	params  RunParams
	store   *treapx.VersionStore
	codec   *OnlineCodec
	answers hash.Hash
	checks  pond.ResultTaskGroup[int64]
	queries int
	checked int
}

func (r *replay) apply(wire Op, versionedQueries bool) error {
	op := r.codec.Decode(wire)
	res, err := Apply(r.store, op, versionedQueries)
	if err != nil {
		return err
	}
	if !res.HasAnswer {
		return nil
	}

	r.queries++
	r.codec.Emit(res.Answer)
	line := fmt.Sprintf("%d\n", res.Answer)
	_, _ = io.WriteString(r.answers, line)
	if r.params.Answers != nil {
		if _, err := io.WriteString(r.params.Answers, line); err != nil {
			return err
		}
	}

	if r.checks != nil && r.queries%r.params.CheckEvery == 0 {
		r.checked++
		store, want := r.store, res.Answer
		r.checks.SubmitErr(func() (int64, error) {
			got, err := store.PeekSum(op.Version, int(op.A), int(op.B))
			if err != nil {
				return 0, err
			}
			if got != want {
				return got, fmt.Errorf("version %d sum [%d, %d]: got %d, want %d", op.Version, op.A, op.B, got, want)
			}
			return got, nil
		})
	}
	return nil
}
