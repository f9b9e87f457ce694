package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("APP_PORT", "")

	require.NoError(t, LoadEnvConfig())
	assert.Equal(t, "8000", DefaultEnvConfig.APP_PORT)
	assert.Equal(t, StoreMongo, DefaultEnvConfig.STORE_DRIVER)
	assert.Equal(t, "assessment_db", DefaultEnvConfig.MONGO_DB)
	assert.Equal(t, "employees", DefaultEnvConfig.MONGO_COLLECTION)
	assert.Empty(t, DefaultEnvConfig.ELASTIC_URL)
}

func TestLoadEnvConfig_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("MONGO_TIMEOUT", "3")

	require.NoError(t, LoadEnvConfig())
	assert.Equal(t, StoreMemory, DefaultEnvConfig.STORE_DRIVER)
	assert.Equal(t, "9090", DefaultEnvConfig.APP_PORT)
	assert.Equal(t, 6543, DefaultEnvConfig.DB_PORT)
	assert.Equal(t, 3*time.Second, DefaultEnvConfig.MONGO_TIMEOUT)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-a-number")
	t.Setenv("CFG_TEST_DURATION", "1m30s")

	assert.Equal(t, 7, getEnvInt("CFG_TEST_INT", 7))
	assert.Equal(t, 90*time.Second, getEnvDuration("CFG_TEST_DURATION", time.Second))
	assert.Equal(t, "fallback", getEnvString("CFG_TEST_MISSING", "fallback"))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
