package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Plan is a list of runs over op logs, read from YAML or JSON.
type Plan struct {
	OpsDir string    `json:"ops_dir" yaml:"ops_dir"`
	Limit  int       `json:"limit" yaml:"limit"`
	Runs   []RunPlan `json:"runs" yaml:"runs"`
}

type RunPlan struct {
	RunName string `json:"name" yaml:"name"`
	// Runner is the binary to execute; empty means the current executable.
	Runner     string         `json:"runner" yaml:"runner"`
	Options    map[string]any `json:"options" yaml:"options"`
	OpsDir     string         `json:"ops_dir" yaml:"ops_dir"`
	Limit      int            `json:"limit" yaml:"limit"`
	Text       bool           `json:"text" yaml:"text"`
	CheckEvery int            `json:"check_every" yaml:"check_every"`
}

func LoadPlan(path string) (Plan, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("error reading plan file: %w", err)
	}
	var plan Plan
	if err := yaml.Unmarshal(bz, &plan); err != nil {
		if jsonErr := json.Unmarshal(bz, &plan); jsonErr != nil {
			return Plan{}, fmt.Errorf("error unmarshaling plan file: %w", jsonErr)
		}
	}
	if len(plan.Runs) == 0 {
		return Plan{}, fmt.Errorf("plan %s has no runs", path)
	}
	for i, run := range plan.Runs {
		// fill in defaults from plan
		if run.OpsDir == "" {
			run.OpsDir = plan.OpsDir
		}
		if run.Limit == 0 {
			run.Limit = plan.Limit
		}
		if run.RunName == "" {
			run.RunName = fmt.Sprintf("run-%d", i)
		}
		if run.OpsDir == "" {
			return Plan{}, fmt.Errorf("run %s has no ops_dir", run.RunName)
		}
		plan.Runs[i] = run
	}
	return plan, nil
}

// Args returns the runner command line for one run; logs and answers go to resultDir.
func (p RunPlan) Args(resultDir string) ([]string, error) {
	args := []string{
		"run",
		"--ops-dir", p.OpsDir,
		"--log-type", "json",
		"--log-file", filepath.Join(resultDir, fmt.Sprintf("%s.jsonl", p.RunName)),
		"--answers-file", filepath.Join(resultDir, fmt.Sprintf("%s.answers", p.RunName)),
		"--hash-log", filepath.Join(resultDir, fmt.Sprintf("%s.hashes", p.RunName)),
	}
	if p.Options != nil {
		bz, err := json.Marshal(p.Options)
		if err != nil {
			return nil, fmt.Errorf("error marshaling options of run %s: %w", p.RunName, err)
		}
		args = append(args, "--options", string(bz))
	}
	if p.Limit != 0 {
		args = append(args, "--limit", strconv.Itoa(p.Limit))
	}
	if p.Text {
		args = append(args, "--text")
	}
	if p.CheckEvery != 0 {
		args = append(args, "--check-every", strconv.Itoa(p.CheckEvery))
	}
	return args, nil
}

// RunAll executes every run of the plan in turn. A failed run is logged and does not stop the plan;
// the returned count is the number of failed runs.
func (p Plan) RunAll(log zerolog.Logger, resultDir string, dryRun bool) (int, error) {
	if !dryRun {
		if err := os.MkdirAll(resultDir, 0o755); err != nil {
			return 0, fmt.Errorf("error creating result dir: %w", err)
		}
	}
	failed := 0
	for _, run := range p.Runs {
		if err := run.execute(log, resultDir, dryRun); err != nil {
			log.Error().Err(err).Str("run", run.RunName).Msg("run failed")
			failed++
		}
	}
	return failed, nil
}

func (p RunPlan) execute(log zerolog.Logger, resultDir string, dryRun bool) error {
	runner := p.Runner
	if runner == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("error locating runner: %w", err)
		}
		runner = self
	}
	args, err := p.Args(resultDir)
	if err != nil {
		return err
	}

	cmd := exec.Command(runner, args...)
	log.Info().Str("run", p.RunName).Str("cmd", cmd.String()).Msg("executing runner command")
	if dryRun {
		log.Info().Msg("dry run, not executing command")
		return nil
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("error running benchmark: %w: %s", err, out)
	}
	log.Info().Str("run", p.RunName).Msg("done")
	return nil
}
