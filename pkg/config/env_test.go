package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	os.Setenv("CONFIG_TEST_SET", "from-env")
	os.Setenv("CONFIG_TEST_EMPTY", "")
	defer os.Unsetenv("CONFIG_TEST_SET")
	defer os.Unsetenv("CONFIG_TEST_EMPTY")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "v=${CONFIG_TEST_SET}", "v=from-env"},
		{"set variable ignores default", "v=${CONFIG_TEST_SET:other}", "v=from-env"},
		{"unset with default", "v=${CONFIG_TEST_UNSET:fallback}", "v=fallback"},
		{"unset without default", "v=${CONFIG_TEST_UNSET}", "v="},
		{"empty but set wins over default", "v=${CONFIG_TEST_EMPTY:fallback}", "v="},
		{"default may contain colons", "v=${CONFIG_TEST_UNSET:host:5432}", "v=host:5432"},
		{"plain text untouched", "cron: 0 */10 * * * *", "cron: 0 */10 * * * *"},
		{"multiple placeholders", "${CONFIG_TEST_SET}/${CONFIG_TEST_UNSET:x}", "from-env/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandEnv(tt.in))
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	os.Setenv("CONFIG_TEST_STR", "value")
	os.Setenv("CONFIG_TEST_INT", "42")
	os.Setenv("CONFIG_TEST_BOOL", "true")
	os.Setenv("CONFIG_TEST_BAD", "not-a-number")
	defer func() {
		os.Unsetenv("CONFIG_TEST_STR")
		os.Unsetenv("CONFIG_TEST_INT")
		os.Unsetenv("CONFIG_TEST_BOOL")
		os.Unsetenv("CONFIG_TEST_BAD")
	}()

	assert.Equal(t, "value", GetEnv("CONFIG_TEST_STR", "d"))
	assert.Equal(t, "d", GetEnv("CONFIG_TEST_MISSING", "d"))

	assert.Equal(t, 42, GetEnvInt("CONFIG_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvInt("CONFIG_TEST_BAD", 7))
	assert.Equal(t, int64(42), GetEnvInt64("CONFIG_TEST_INT", 7))

	assert.True(t, GetEnvBool("CONFIG_TEST_BOOL", false))
	assert.False(t, GetEnvBool("CONFIG_TEST_BAD", false))
}

func TestGetEnvSlice_TrimsElements(t *testing.T) {
	os.Setenv("CONFIG_TEST_SLICE", "a:9092, b:9092 ,c:9092")
	defer os.Unsetenv("CONFIG_TEST_SLICE")

	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, GetEnvSlice("CONFIG_TEST_SLICE", nil))
	assert.Equal(t, []string{"x"}, GetEnvSlice("CONFIG_TEST_MISSING", []string{"x"}))
}
