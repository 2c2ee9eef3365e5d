package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_SortedAndEmbedded(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	assert.Equal(t, "001_usage_log.sql", files[0])
	for i := 1; i < len(files); i++ {
		assert.Less(t, files[i-1], files[i])
	}

	for _, f := range files {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+f)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(content), "CREATE TABLE IF NOT EXISTS"), f)
	}
}
