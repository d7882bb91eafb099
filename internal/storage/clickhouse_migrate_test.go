package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- table comment
CREATE TABLE a (
    x Int64
) ENGINE = MergeTree()
ORDER BY x;

CREATE TABLE b (y String) ENGINE = Log;
SELECT 1
`

	got := splitSQLStatements(content)
	assert.Len(t, got, 3)
	assert.Contains(t, got[0], "CREATE TABLE a")
	assert.NotContains(t, got[0], ";")
	assert.NotContains(t, got[0], "table comment")
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Log", got[1])
	assert.Equal(t, "SELECT 1", got[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
