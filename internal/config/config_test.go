package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoOverrides(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFlagOverridesWinOverDefaults(t *testing.T) {
	v := viper.New()
	v.Set("carsize", 6)
	v.Set("assignment_objective", string(AssignmentRMT))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.CarSize)
	assert.Equal(t, AssignmentRMT, cfg.Assignment)
	assert.Equal(t, Defaults().MaxWaiting, cfg.MaxWaiting, "fields not overridden still fall back to defaults")
}

func TestLoadConfigFileOverridesDefaultsButNotFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridepool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("carsize: 8\nmax_waiting: 120\n"), 0o644))

	v := viper.New()
	v.Set("max_waiting", 999) // simulates an explicitly-set flag

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.CarSize, "file value applies where no flag was set")
	assert.Equal(t, 999, cfg.MaxWaiting, "an explicitly bound flag still wins over the file")
}

func TestLoadUnreadableConfigFileErrors(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
