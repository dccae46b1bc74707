package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHostPort(t *testing.T) {
	assert.Equal(t, "ch.local:9000", extractHostPort("clickhouse://ch.local"))
	assert.Equal(t, "ch.local:9440", extractHostPort("clickhouses://ch.local/nurseconnect"))
	assert.Equal(t, "ch.local:19000", extractHostPort("clickhouse://ch.local:19000"))
	assert.Equal(t, "ch.local", extractHostname("clickhouses://ch.local:9440"))
}
