package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/pokedo/internal/scripting"
)

func TestNewSandbox_UnsafeLibsNil(t *testing.T) {
	sb := scripting.NewSandbox(0)
	defer sb.Close()
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, sb.L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandbox_DangerousGlobalsNil(t *testing.T) {
	sb := scripting.NewSandbox(0)
	defer sb.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, sb.L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandbox_NoRandomness(t *testing.T) {
	sb := scripting.NewSandbox(0)
	defer sb.Close()
	assert.Error(t, sb.DoString(`return math.random(1, 6)`))
}

func TestNewSandbox_SafeLibsAvailable(t *testing.T) {
	sb := scripting.NewSandbox(0)
	defer sb.Close()
	err := sb.DoString(`
		local x = math.sqrt(4)
		assert(x == 2.0, "math.sqrt failed")
		local s = string.upper("hello")
		assert(s == "HELLO", "string.upper failed")
	`)
	assert.NoError(t, err)
}

func TestNewSandbox_InstructionLimitExceeded(t *testing.T) {
	sb := scripting.NewSandbox(10)
	defer sb.Close()
	assert.Error(t, sb.DoString(`while true do end`), "expected instruction limit error")
}

func TestSandbox_BudgetIsPerRun(t *testing.T) {
	sb := scripting.NewSandbox(200)
	defer sb.Close()
	for i := 0; i < 20; i++ {
		require.NoError(t, sb.DoString(`local x = 0 for i = 1, 10 do x = x + i end`), "run %d", i)
	}
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		sb := scripting.NewSandbox(limit)
		defer sb.Close()
		if err := sb.DoString(`while true do end`); err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}
