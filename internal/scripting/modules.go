package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// RegisterModules defines the read-only pokedo table in L:
//
//	pokedo.types  array of every elemental type name
//	pokedo.clear  the neutral weather multiplier (1.0)
//
// Precondition: L must come from NewSandbox.
func RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	types := L.NewTable()
	for _, t := range pokemon.AllTypes() {
		types.Append(lua.LString(t.String()))
	}
	mod.RawSetString("types", types)
	mod.RawSetString("clear", lua.LNumber(1.0))
	L.SetGlobal("pokedo", mod)
}
