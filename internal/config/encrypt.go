package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/rowjay/monthly-archiver/internal/cryptoutil"
)

// EncryptConfigFile seals a plaintext config file for use with
// ARCHIVER_CONFIG_KEY. The input must parse as the format its extension
// names, so a broken file is never locked away.
func EncryptConfigFile(inputPath, outputPath, key string) error {
	if filepath.Clean(inputPath) == filepath.Clean(outputPath) {
		return fmt.Errorf("output must differ from input")
	}
	plain, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return err
	}

	vp := viper.New()
	vp.SetConfigType(configTypeFromPath(inputPath))
	if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
		return fmt.Errorf("parse %s: %w", inputPath, err)
	}

	ciphertext, err := cryptoutil.EncryptConfig(plain, parsed)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, ciphertext, 0o600)
}
