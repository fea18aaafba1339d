package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func opsFilename(dataDir string) string {
	return filepath.Join(dataDir, "ops.bin")
}

func opsTextFilename(dataDir string) string {
	return filepath.Join(dataDir, "ops.txt")
}

func opsInfoFilename(dataDir string) string {
	return filepath.Join(dataDir, "ops_info.json")
}

// OpsInfo describes a generated op log.
type OpsInfo struct {
	Ops              int    `json:"ops"`
	Seed             uint64 `json:"seed"`
	Online           bool   `json:"online"`
	VersionedQueries bool   `json:"versioned_queries"`
	// Versions is the number of versions after replaying the log, including version 0.
	Versions int `json:"versions"`
	Queries  int `json:"queries"`
	// AnswersHash is the hex sha256 of the answers file a correct replay produces.
	AnswersHash string `json:"answers_hash"`
}

func writeOpsInfo(dataDir string, info OpsInfo) error {
	bz, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling info file: %w", err)
	}
	return os.WriteFile(opsInfoFilename(dataDir), bz, 0o644)
}

func ReadOpsInfo(dataDir string) (OpsInfo, error) {
	bz, err := os.ReadFile(opsInfoFilename(dataDir))
	if err != nil {
		return OpsInfo{}, fmt.Errorf("error reading info file: %w", err)
	}
	var info OpsInfo
	err = json.Unmarshal(bz, &info)
	if err != nil {
		return OpsInfo{}, fmt.Errorf("error unmarshaling info file: %w", err)
	}
	return info, nil
}
