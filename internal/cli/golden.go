package cli

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/roach88/ledgerflow/internal/harness"
)

func writeGolden(path, name string, result *harness.Result) error {
	data, err := harness.MarshalSnapshot(name, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func compareGolden(path, name string, result *harness.Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	got, err := harness.MarshalSnapshot(name, result)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}
