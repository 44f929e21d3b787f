package battle

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/pokedo/internal/game/dice"
	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// DefaultMaxTurns is the turn count after which a battle ends in a draw.
const DefaultMaxTurns = 200

// Status effect tuning.
const (
	ParalysisSkipPercent = 25
	FreezeThawPercent    = 20
	RestSleepTurns       = 2
	MaxSleepTurns        = 3
)

// WeatherFunc returns the damage multiplier for a move of the given type.
type WeatherFunc func(moveType pokemon.Type) float64

// Engine resolves battle turns. It holds only configuration and is safe for
// concurrent use; all per-battle data lives in the State passed to it.
type Engine struct {
	maxTurns int
	weather  WeatherFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxTurns sets the turn cap. Values <= 0 keep the default.
func WithMaxTurns(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxTurns = n
		}
	}
}

// WithWeather installs a weather modifier. A nil func means clear weather.
func WithWeather(fn WeatherFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.weather = fn
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		maxTurns: DefaultMaxTurns,
		weather:  func(pokemon.Type) float64 { return 1.0 },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// MaxTurns returns the configured turn cap.
func (e *Engine) MaxTurns() int { return e.maxTurns }

// ResolveTurn resolves the open turn of s once both actions are pending. Every
// random draw comes from src and is recorded in s.Replays. It performs no I/O.
//
// Precondition: s.Status == StatusActive and both pending slots are filled.
// Postcondition: on success s.Turn is incremented, the returned events are
// appended to s.History and the pending slots are cleared; on error s is
// unchanged.
func (e *Engine) ResolveTurn(s *State, src dice.Source, now time.Time) ([]TurnEvent, error) {
	if s.Status != StatusActive {
		return nil, fmt.Errorf("%w: battle %s is %s, not active", ErrState, s.ID, s.Status)
	}
	if !s.resolvable() {
		return nil, fmt.Errorf("%w: battle %s is still waiting for actions", ErrState, s.ID)
	}
	var acts [2]Action
	for side, rec := range s.Pending {
		if rec == nil {
			continue
		}
		a, err := rec.Action()
		if err != nil {
			return nil, err
		}
		acts[side] = a
	}

	rec := dice.NewRecorder(src)
	r := &resolver{
		e:    e,
		s:    s,
		src:  rec,
		log:  eventLog{turn: s.Turn + 1},
		acts: acts,
	}
	r.run()

	s.Turn++
	s.History = append(s.History, r.log.events...)
	s.Replays = append(s.Replays, TurnReplay{
		Turn:    s.Turn,
		Actions: s.Pending,
		Draws:   rec.Draws(),
	})
	s.Pending = [2]*ActionRecord{}
	s.UpdatedAt = now
	if r.finished {
		s.finish(r.winner, r.draw, r.reason, now)
	}
	return r.log.events, nil
}

// Replay re-runs every recorded turn of s from its initial team snapshots and
// returns the rebuilt state. s is not modified.
func (e *Engine) Replay(s *State) (*State, error) {
	c, err := s.Clone()
	if err != nil {
		return nil, err
	}
	for side := range c.Teams {
		if s.InitialTeams[side] == nil {
			return nil, fmt.Errorf("%w: battle %s has no team snapshot for side %d", ErrState, s.ID, side)
		}
		if c.Teams[side], err = cloneTeam(s.InitialTeams[side]); err != nil {
			return nil, err
		}
	}
	c.Status = StatusActive
	c.Turn = 0
	c.History = nil
	c.Replays = nil
	c.Pending = [2]*ActionRecord{}
	c.Winner, c.Draw, c.Reason, c.FailureReason, c.FinishedAt = "", false, FinishNone, "", nil

	for _, tr := range s.Replays {
		for side, a := range tr.Actions {
			if a != nil {
				rec := *a
				c.Pending[side] = &rec
			}
		}
		if _, err := e.ResolveTurn(c, dice.NewReplay(tr.Draws), s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("replaying turn %d: %w", tr.Turn, err)
		}
	}
	return c, nil
}

// resolver carries the working data of one turn.
type resolver struct {
	e    *Engine
	s    *State
	src  dice.Source
	log  eventLog
	acts [2]Action

	order    []int
	finished bool
	winner   string
	draw     bool
	reason   FinishReason
}

func (r *resolver) run() {
	if r.forfeits() {
		return
	}
	for side, a := range r.acts {
		if sw, ok := a.(SwitchAction); ok {
			r.switchIn(side, sw.Slot)
		}
	}
	for _, side := range r.attackOrder() {
		r.attack(side, r.acts[side].(MoveAction).Index)
	}
	r.faintCheck()
	r.residuals()
	r.faintCheck()
	for _, t := range r.s.Teams {
		t.ActivePokemon().Protected = false
	}
	r.terminalCheck()
}

func (r *resolver) end(winner string, draw bool, reason FinishReason) {
	r.finished, r.winner, r.draw, r.reason = true, winner, draw, reason
}

func (r *resolver) forfeits() bool {
	var quit []int
	for side, a := range r.acts {
		if _, ok := a.(ForfeitAction); ok {
			quit = append(quit, side)
			r.log.add(TurnEvent{Kind: EventForfeit, Actor: r.s.Players[side]})
		}
	}
	switch len(quit) {
	case 0:
		return false
	case 1:
		winner := r.s.Players[1-quit[0]]
		r.log.add(TurnEvent{Kind: EventWin, Actor: winner})
		r.end(winner, false, FinishForfeit)
	default:
		r.log.add(TurnEvent{Kind: EventDraw, Detail: "both players forfeited"})
		r.end("", true, FinishForfeit)
	}
	return true
}

func (r *resolver) switchIn(side, slot int) {
	t := r.s.Teams[side]
	out := t.ActivePokemon()
	out.Protected = false
	if out.Status == pokemon.BadlyPoisoned {
		out.StatusTurns = 0
	}
	t.Active = slot
	t.MustSwitch = false
	in := t.ActivePokemon()
	r.log.add(TurnEvent{
		Kind:    EventSwitch,
		Actor:   r.s.Players[side],
		Pokemon: in.Name(),
		Target:  out.Name(),
	})
}

// speedOrder returns both sides fastest first. A speed tie consumes one draw.
func (r *resolver) speedOrder() []int {
	if r.order != nil {
		return r.order
	}
	s0 := r.s.Teams[0].ActivePokemon().EffectiveSpeed()
	s1 := r.s.Teams[1].ActivePokemon().EffectiveSpeed()
	switch {
	case s0 > s1:
		r.order = []int{0, 1}
	case s1 > s0:
		r.order = []int{1, 0}
	case r.src.Intn(2) == 0:
		r.order = []int{0, 1}
	default:
		r.order = []int{1, 0}
	}
	return r.order
}

func (r *resolver) priority(side int) int {
	a := r.acts[side].(MoveAction)
	p := r.s.Teams[side].ActivePokemon()
	if p.OutOfPP() || a.Index >= len(p.Moves) {
		return 0
	}
	return p.Moves[a.Index].Move.Priority
}

func (r *resolver) attackOrder() []int {
	var movers []int
	for side, a := range r.acts {
		if _, ok := a.(MoveAction); ok {
			movers = append(movers, side)
		}
	}
	if len(movers) < 2 {
		return movers
	}
	p0, p1 := r.priority(0), r.priority(1)
	switch {
	case p0 > p1:
		return []int{0, 1}
	case p1 > p0:
		return []int{1, 0}
	default:
		return r.speedOrder()
	}
}

func (r *resolver) attack(side, index int) {
	atk := r.s.Teams[side].ActivePokemon()
	if atk.IsFainted() {
		return
	}
	def := r.s.Teams[1-side].ActivePokemon()
	actor := r.s.Players[side]

	switch atk.Status {
	case pokemon.Sleep:
		r.log.add(TurnEvent{Kind: EventCantMove, Actor: actor, Pokemon: atk.Name(), Status: atk.Status, Detail: "fast asleep"})
		return
	case pokemon.Freeze:
		r.log.add(TurnEvent{Kind: EventCantMove, Actor: actor, Pokemon: atk.Name(), Status: atk.Status, Detail: "frozen solid"})
		return
	case pokemon.Paralysis:
		if r.src.Intn(100) < ParalysisSkipPercent {
			r.log.add(TurnEvent{Kind: EventCantMove, Actor: actor, Pokemon: atk.Name(), Status: atk.Status, Detail: "fully paralyzed"})
			return
		}
	}

	var mv moves.Move
	if atk.OutOfPP() {
		mv = moves.Struggle()
	} else {
		slot := &atk.Moves[index]
		slot.PP--
		mv = slot.Move
	}
	r.log.add(TurnEvent{Kind: EventMove, Actor: actor, Pokemon: atk.Name(), Target: def.Name(), Move: mv.Name})

	if mv.Category == moves.StatusMove {
		r.statusMove(actor, atk, def, mv)
		return
	}
	if !r.reaches(actor, atk, def, mv) {
		return
	}

	eff := pokemon.Effectiveness(mv.Type, def.Types...)
	if eff == 0 {
		r.log.add(TurnEvent{Kind: EventImmune, Actor: actor, Pokemon: atk.Name(), Target: def.Name(), Move: mv.Name})
		return
	}
	crit := r.src.Intn(CriticalChance) == 0
	factor := float64(MinRandomPercent+r.src.Intn(MaxRandomPercent-MinRandomPercent+1)) / 100
	dmg := CalculateDamage(atk, def, mv, crit, factor, r.e.weather(mv.Type))
	dealt := def.TakeDamage(dmg)
	r.log.add(TurnEvent{
		Kind:          EventDamage,
		Actor:         actor,
		Pokemon:       atk.Name(),
		Target:        def.Name(),
		Move:          mv.Name,
		Amount:        dealt,
		Effectiveness: eff,
		Critical:      crit,
	})

	if mv.DrainPercent > 0 && dealt > 0 {
		if healed := atk.Heal(max(1, dealt*mv.DrainPercent/100)); healed > 0 {
			r.log.add(TurnEvent{Kind: EventDrain, Actor: actor, Pokemon: atk.Name(), Target: def.Name(), Amount: healed})
		}
	}
	if mv.RecoilPercent > 0 && dealt > 0 {
		lost := atk.TakeDamage(max(1, dealt*mv.RecoilPercent/100))
		r.log.add(TurnEvent{Kind: EventRecoil, Actor: actor, Pokemon: atk.Name(), Move: mv.Name, Amount: lost})
	}
	if mv.Status != pokemon.StatusNone && mv.EffectChance > 0 && r.canInflict(def, mv.Status) {
		if r.src.Intn(100) < mv.EffectChance {
			r.inflict(actor, def, mv.Status)
		}
	}
}

// reaches runs the target, protect and accuracy checks shared by every move
// aimed at the opponent. It logs the reason when the move does not connect.
func (r *resolver) reaches(actor string, atk, def *Pokemon, mv moves.Move) bool {
	switch {
	case def.IsFainted():
		r.log.add(TurnEvent{Kind: EventNoTarget, Actor: actor, Pokemon: atk.Name(), Move: mv.Name})
		return false
	case def.Protected:
		r.log.add(TurnEvent{Kind: EventProtected, Actor: actor, Pokemon: atk.Name(), Target: def.Name(), Move: mv.Name})
		return false
	case !mv.SureHit && r.src.Intn(100)+1 > mv.Accuracy:
		r.log.add(TurnEvent{Kind: EventMiss, Actor: actor, Pokemon: atk.Name(), Target: def.Name(), Move: mv.Name})
		return false
	}
	return true
}

func (r *resolver) statusMove(actor string, atk, def *Pokemon, mv moves.Move) {
	switch {
	case mv.Protect:
		atk.Protected = true
		r.log.add(TurnEvent{Kind: EventProtect, Actor: actor, Pokemon: atk.Name(), Move: mv.Name})
	case mv.SelfHeal:
		healed := atk.Heal(atk.MaxHP * mv.HealPercent / 100)
		if mv.Status != pokemon.StatusNone {
			atk.clearStatus()
			atk.Status = mv.Status
			if mv.Status == pokemon.Sleep {
				atk.StatusTurns = RestSleepTurns
			}
			r.log.add(TurnEvent{Kind: EventStatusApplied, Actor: actor, Pokemon: atk.Name(), Target: atk.Name(), Move: mv.Name, Status: mv.Status})
		}
		if healed > 0 {
			r.log.add(TurnEvent{Kind: EventHeal, Actor: actor, Pokemon: atk.Name(), Move: mv.Name, Amount: healed})
		} else if mv.Status == pokemon.StatusNone {
			r.log.add(TurnEvent{Kind: EventNoEffect, Actor: actor, Pokemon: atk.Name(), Move: mv.Name, Detail: "already at full health"})
		}
	case mv.Status != pokemon.StatusNone:
		if !r.reaches(actor, atk, def, mv) {
			return
		}
		if !r.canInflict(def, mv.Status) {
			r.log.add(TurnEvent{Kind: EventNoEffect, Actor: actor, Pokemon: atk.Name(), Target: def.Name(), Move: mv.Name})
			return
		}
		r.inflict(actor, def, mv.Status)
	default:
		r.log.add(TurnEvent{Kind: EventNoEffect, Actor: actor, Pokemon: atk.Name(), Move: mv.Name})
	}
}

func (r *resolver) canInflict(p *Pokemon, s pokemon.Status) bool {
	return !p.IsFainted() && p.Status == pokemon.StatusNone && !pokemon.ImmuneTo(s, p.Types...)
}

func (r *resolver) inflict(actor string, p *Pokemon, s pokemon.Status) {
	turns := 0
	if s == pokemon.Sleep {
		turns = 1 + r.src.Intn(MaxSleepTurns)
	}
	if p.setStatus(s, turns) {
		r.log.add(TurnEvent{Kind: EventStatusApplied, Actor: actor, Target: p.Name(), Status: s})
	}
}

func (r *resolver) faintCheck() {
	for side, t := range r.s.Teams {
		p := t.ActivePokemon()
		if !p.IsFainted() || p.Fainted {
			continue
		}
		p.Fainted = true
		p.Protected = false
		r.log.add(TurnEvent{Kind: EventFaint, Actor: r.s.Players[side], Pokemon: p.Name()})
		t.MustSwitch = t.HasUsable()
	}
}

func (r *resolver) residuals() {
	if r.s.Teams[0].ActivePokemon().IsFainted() || r.s.Teams[1].ActivePokemon().IsFainted() {
		for side := range r.s.Teams {
			r.residual(side)
		}
		return
	}
	for _, side := range r.speedOrder() {
		r.residual(side)
	}
}

func (r *resolver) residual(side int) {
	p := r.s.Teams[side].ActivePokemon()
	if p.IsFainted() {
		return
	}
	actor := r.s.Players[side]
	chip := 0
	switch p.Status {
	case pokemon.Burn:
		chip = max(1, p.MaxHP/16)
	case pokemon.Poisoned:
		chip = max(1, p.MaxHP/8)
	case pokemon.BadlyPoisoned:
		p.StatusTurns++
		chip = max(1, p.MaxHP*p.StatusTurns/16)
	case pokemon.Sleep:
		p.StatusTurns--
		if p.StatusTurns <= 0 {
			p.clearStatus()
			r.log.add(TurnEvent{Kind: EventStatusCured, Actor: actor, Pokemon: p.Name(), Status: pokemon.Sleep, Detail: "woke up"})
		}
	case pokemon.Freeze:
		if r.src.Intn(100) < FreezeThawPercent {
			p.clearStatus()
			r.log.add(TurnEvent{Kind: EventStatusCured, Actor: actor, Pokemon: p.Name(), Status: pokemon.Freeze, Detail: "thawed out"})
		}
	}
	if chip > 0 {
		lost := p.TakeDamage(chip)
		r.log.add(TurnEvent{Kind: EventStatusDamage, Actor: actor, Pokemon: p.Name(), Status: p.Status, Amount: lost})
	}
}

func (r *resolver) terminalCheck() {
	if r.finished {
		return
	}
	out0 := !r.s.Teams[0].HasUsable()
	out1 := !r.s.Teams[1].HasUsable()
	switch {
	case out0 && out1:
		r.log.add(TurnEvent{Kind: EventDraw, Detail: "both sides are out of usable pokemon"})
		r.end("", true, FinishKnockout)
	case out0:
		r.log.add(TurnEvent{Kind: EventWin, Actor: r.s.Players[1]})
		r.end(r.s.Players[1], false, FinishKnockout)
	case out1:
		r.log.add(TurnEvent{Kind: EventWin, Actor: r.s.Players[0]})
		r.end(r.s.Players[0], false, FinishKnockout)
	case r.s.Turn+1 >= r.e.maxTurns:
		r.log.add(TurnEvent{Kind: EventDraw, Detail: "turn limit reached"})
		r.end("", true, FinishTurnLimit)
	}
}
