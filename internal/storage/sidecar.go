package storage

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// SidecarSuffix marks the file holding user metadata for a local object.
const SidecarSuffix = ".meta.json"

func SidecarPath(objectPath string) string {
	return objectPath + SidecarSuffix
}

func isSidecar(key string) bool {
	return strings.HasSuffix(key, SidecarSuffix)
}

func readSidecar(objectPath string) (map[string]string, error) {
	data, err := os.ReadFile(SidecarPath(objectPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	metadata := map[string]string{}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

func writeSidecar(objectPath string, metadata map[string]string) error {
	if len(metadata) == 0 {
		err := os.Remove(SidecarPath(objectPath))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	payload, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(SidecarPath(objectPath), payload, 0o600)
}
