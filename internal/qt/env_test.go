package qt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvironmentCopiesInput(t *testing.T) {
	vars := map[string]string{VarQtHome: "/opt/qt"}
	env := NewEnvironment(vars)
	vars[VarQtHome] = "/changed"

	assert.Equal(t, "/opt/qt", env.Get(VarQtHome))
}

func TestEnvironmentIsSet(t *testing.T) {
	env := NewEnvironment(map[string]string{"A": "x", "B": "  "})
	assert.True(t, env.IsSet("A"))
	assert.False(t, env.IsSet("B"))
	assert.False(t, env.IsSet("C"))

	_, ok := env.Lookup("B")
	assert.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, env.Keys())
}

func TestConfigFlags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"release", []string{"release"}},
		{"release, c++11 ,,", []string{"release", "c++11"}},
	}
	for _, tt := range tests {
		env := NewEnvironment(map[string]string{VarQtConfig: tt.raw})
		assert.Equal(t, tt.want, env.ConfigFlags(), tt.raw)
	}
}
