package scripting

import (
	"fmt"
	"math"
	"os"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// WeatherHook is the Lua global consulted for damage multipliers. It receives
// a move type name ("none" for typeless moves) and returns a number.
const WeatherHook = "weather_modifier"

// MaxWeatherMultiplier bounds what a script may return.
const MaxWeatherMultiplier = 4.0

// Rules are the battle modifiers defined by a rules script. They are
// evaluated once at load, so a battle engine using them stays pure and
// replayable.
type Rules struct {
	name    string
	weather map[pokemon.Type]float64
}

// LoadRules reads and evaluates the rules script at path.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns Rules or an error naming the offending type or Lua fault.
func LoadRules(path string, instLimit int, logger *zap.Logger) (*Rules, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading rules %q: %w", path, err)
	}
	return ParseRules(path, string(src), instLimit, logger)
}

// ParseRules evaluates src as a rules script. name is used in errors and logs.
func ParseRules(name, src string, instLimit int, logger *zap.Logger) (*Rules, error) {
	sb := NewSandbox(instLimit)
	defer sb.Close()
	RegisterModules(sb.L)

	if err := sb.DoString(src); err != nil {
		return nil, fmt.Errorf("scripting: loading %q: %w", name, err)
	}

	r := &Rules{name: name}
	fn := sb.L.GetGlobal(WeatherHook)
	if fn == lua.LNil {
		logger.Info("scripting: rules loaded without weather",
			zap.String("script", name),
		)
		return r, nil
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("scripting: %q: %s must be a function, got %s", name, WeatherHook, fn.Type())
	}

	r.weather = make(map[pokemon.Type]float64)
	types := append([]pokemon.Type{pokemon.TypeNone}, pokemon.AllTypes()...)
	for _, t := range types {
		v, err := callNumber(sb, fn, lua.LString(t.String()))
		if err != nil {
			return nil, fmt.Errorf("scripting: %q: %s(%q): %w", name, WeatherHook, t, err)
		}
		if math.IsNaN(v) || v <= 0 || v > MaxWeatherMultiplier {
			return nil, fmt.Errorf("scripting: %q: %s(%q) = %v, want a value in (0, %v]",
				name, WeatherHook, t, v, MaxWeatherMultiplier)
		}
		if v != 1.0 {
			r.weather[t] = v
		}
	}
	logger.Info("scripting: rules loaded",
		zap.String("script", name),
		zap.Int("weather_modified_types", len(r.weather)),
	)
	return r, nil
}

// callNumber calls fn(arg) under a fresh budget and returns its numeric
// result. nil means neutral.
func callNumber(sb *Sandbox, fn lua.LValue, arg lua.LValue) (float64, error) {
	var out float64
	err := sb.Run(func(L *lua.LState) error {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
			return err
		}
		ret := L.Get(-1)
		L.Pop(1)
		switch v := ret.(type) {
		case lua.LNumber:
			out = float64(v)
			return nil
		case *lua.LNilType:
			out = 1.0
			return nil
		default:
			return fmt.Errorf("returned %s, want a number", ret.Type())
		}
	})
	return out, err
}

// Weather returns the engine hook for the script's weather, or nil for
// clear weather.
func (r *Rules) Weather() battle.WeatherFunc {
	if len(r.weather) == 0 {
		return nil
	}
	table := make(map[pokemon.Type]float64, len(r.weather))
	for t, v := range r.weather {
		table[t] = v
	}
	return func(t pokemon.Type) float64 {
		if v, ok := table[t]; ok {
			return v
		}
		return 1.0
	}
}

// EngineOptions returns the engine options these rules imply.
func (r *Rules) EngineOptions() []battle.EngineOption {
	if w := r.Weather(); w != nil {
		return []battle.EngineOption{battle.WithWeather(w)}
	}
	return nil
}
