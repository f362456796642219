package bootstrap

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"sacco_backoffice/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestOpenStores_File(t *testing.T) {
	cfg := &config.AppConfig{
		StoreDriver: config.StoreDriverFile,
		DataFile:    filepath.Join(t.TempDir(), "members.json"),
	}

	stores, err := OpenStores(cfg, quietLogger())
	require.NoError(t, err)
	defer stores.Close()

	members, err := stores.Members.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, members)

	runs, err := stores.Runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := OpenStores(&config.AppConfig{StoreDriver: "mongo"}, quietLogger())
	assert.ErrorContains(t, err, "unsupported store driver")
}
