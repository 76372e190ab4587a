package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalsEmitInOrder(t *testing.T) {
	s := NewSignals()
	var got []string
	s.Connect("evt", func(sender any, params ...any) { got = append(got, "a:"+sender.(string)) })
	s.Connect("evt", func(sender any, params ...any) { got = append(got, "b:"+params[0].(string)) })
	s.Connect("other", func(sender any, params ...any) { got = append(got, "never") })

	s.Emit("evt", "x", "y")
	assert.Equal(t, []string{"a:x", "b:y"}, got)

	s.Clear("evt")
	s.Emit("evt", "x", "y")
	assert.Len(t, got, 2)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MR_INT", "42")
	t.Setenv("MR_BOOL", "true")
	t.Setenv("MR_DUR", "45s")
	t.Setenv("MR_BAD", "nope")

	assert.Equal(t, int64(42), GetIntEnv("MR_INT"))
	assert.Equal(t, int64(7), GetIntEnvOr("MR_BAD", 7))
	assert.True(t, GetBoolEnv("MR_BOOL"))
	assert.True(t, GetBoolEnvOr("MR_MISSING", true))
	assert.Equal(t, "fallback", GetEnvOr("MR_MISSING", "fallback"))
	assert.Equal(t, "45s", GetDurationEnvOr("MR_DUR", 0).String())
}
