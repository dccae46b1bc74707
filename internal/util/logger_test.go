package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskMSISDN(t *testing.T) {
	cases := map[string]string{
		"+27820001001": "+278*****001",
		"+2782000":     "+278*000",
		"+278200":      "+278200",
		"123456":       "******",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskMSISDN(in), in)
	}
}

func TestMSISDNFieldRespectsRedaction(t *testing.T) {
	prev := redactPII.Load()
	t.Cleanup(func() { redactPII.Store(prev) })

	redactPII.Store(true)
	assert.Equal(t, "+278*****001", MSISDN("msisdn", "+27820001001").String)

	redactPII.Store(false)
	assert.Equal(t, "+27820001001", MSISDN("msisdn", "+27820001001").String)
}
