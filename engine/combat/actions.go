package combat

import (
	"github.com/nathoo/wayfarer/types"
)

// Action is a player command during their turn.
type Action string

const (
	ActionAttack   Action = "attack"
	ActionSkill    Action = "skill"
	ActionDefend   Action = "defend"
	ActionContract Action = "contract"
	ActionEscape   Action = "escape"
)

// PetAction is a command for the pet during its turn.
type PetAction string

const (
	PetAttack PetAction = "attack"
	PetSkill  PetAction = "skill"
	PetDefend PetAction = "defend"
)

func (s *Scheduler) canAct(who types.Actor) bool {
	return s.Active() && s.state.Turn == who && s.state.CaptureAt == 0
}

// endTurn zeroes the actor's gauge and hands control back to the tick.
func (s *Scheduler) endTurn(who types.Actor) {
	switch who {
	case types.ActorPlayer:
		s.state.PlayerAP = 0
		s.state.Round++
	case types.ActorPet:
		s.state.PetAP = 0
	case types.ActorEnemy:
		s.state.EnemyAP = 0
	}
	if s.state.Turn == who {
		s.state.Turn = types.ActorNone
	}
}

// Act resolves a player action. It returns false, changing nothing, when
// it is not the player's turn or the action is not allowed right now.
func (s *Scheduler) Act(a Action) bool {
	if !s.canAct(types.ActorPlayer) {
		return false
	}
	switch a {
	case ActionAttack:
		s.state.PlayerDefending = false
		dmg := Damage(s.stats.Attack, s.enemy.Defense, false, s.cfg.DefendBonus, s.rng.Float64()*s.cfg.JitterMax)
		s.logf("You strike %s for %d damage.", s.enemy.Name, dmg)
		s.endTurn(types.ActorPlayer)
		s.hitEnemy(dmg)
	case ActionSkill:
		if s.state.PlayerMP < s.cfg.SkillMPCost {
			return false
		}
		s.state.PlayerDefending = false
		s.state.PlayerMP -= s.cfg.SkillMPCost
		dmg := SkillDamage(s.stats.Attack, s.enemy.Defense, false, s.cfg.DefendBonus, s.cfg.SkillMultiplier)
		s.logf("You unleash a skill on %s for %d damage.", s.enemy.Name, dmg)
		s.endTurn(types.ActorPlayer)
		s.hitEnemy(dmg)
	case ActionDefend:
		s.state.PlayerDefending = true
		s.logf("You raise your guard.")
		s.endTurn(types.ActorPlayer)
	case ActionContract:
		if !s.enemy.Capturable || s.enemy.Kind != types.EntityMonster {
			return false
		}
		s.state.PlayerDefending = false
		s.state.CaptureAt = s.state.Tick + s.cfg.CaptureDelayTicks
		if s.state.CaptureAt <= s.state.Tick {
			s.state.CaptureAt = s.state.Tick + 1
		}
		s.logf("You attempt to bind %s...", s.enemy.Name)
		s.endTurn(types.ActorPlayer)
	case ActionEscape:
		s.state.PlayerDefending = false
		s.endTurn(types.ActorPlayer)
		if s.rng.Chance(s.cfg.EscapeChance(s.stats.Speed, s.enemy.Speed)) {
			s.logf("You slip away from %s.", s.enemy.Name)
			s.finish(types.OutcomeEscaped)
		} else {
			s.logf("You fail to escape!")
		}
	default:
		return false
	}
	return true
}

// UseItem applies a consumable during the player's turn. The caller is
// responsible for removing the item from the inventory when this returns
// true.
func (s *Scheduler) UseItem(it types.Item) bool {
	if !s.canAct(types.ActorPlayer) || it.Category != types.ItemConsumable || it.Effect == nil {
		return false
	}
	switch it.Effect.Kind {
	case types.EffectHeal:
		before := s.state.PlayerHP
		s.state.PlayerHP = min(s.state.PlayerMaxHP, s.state.PlayerHP+it.Effect.Amount)
		s.logf("You use %s and recover %d HP.", it.Name, s.state.PlayerHP-before)
	case types.EffectRestoreMP:
		before := s.state.PlayerMP
		s.state.PlayerMP = min(s.stats.MaxMP, s.state.PlayerMP+it.Effect.Amount)
		s.logf("You use %s and recover %d MP.", it.Name, s.state.PlayerMP-before)
	default:
		return false
	}
	s.state.PlayerDefending = false
	s.endTurn(types.ActorPlayer)
	return true
}

// PetAct resolves a pet action.
func (s *Scheduler) PetAct(a PetAction) bool {
	if !s.canAct(types.ActorPet) {
		return false
	}
	switch a {
	case PetAttack:
		s.state.PetDefending = false
		dmg := Damage(s.pet.Attack, s.enemy.Defense, false, s.cfg.DefendBonus, s.rng.Float64()*s.cfg.JitterMax)
		s.logf("%s bites %s for %d damage.", s.pet.Name, s.enemy.Name, dmg)
		s.endTurn(types.ActorPet)
		s.hitEnemy(dmg)
	case PetSkill:
		s.state.PetDefending = false
		dmg := SkillDamage(s.pet.Attack, s.enemy.Defense, false, s.cfg.DefendBonus, s.cfg.SkillMultiplier)
		s.logf("%s uses a special move on %s for %d damage.", s.pet.Name, s.enemy.Name, dmg)
		s.endTurn(types.ActorPet)
		s.hitEnemy(dmg)
	case PetDefend:
		s.state.PetDefending = true
		s.logf("%s takes a defensive stance.", s.pet.Name)
		s.endTurn(types.ActorPet)
	default:
		return false
	}
	return true
}

func (s *Scheduler) hitEnemy(dmg int) {
	s.state.EnemyHP -= dmg
	if s.state.EnemyHP <= 0 {
		s.state.EnemyHP = 0
		s.logf("%s is defeated!", s.enemy.Name)
		s.finish(types.OutcomeVictory)
	}
}

// enemyTurn runs automatically when the enemy's gauge fills.
func (s *Scheduler) enemyTurn() {
	jitter := s.rng.Float64() * s.cfg.JitterMax
	if s.petAlive() && s.rng.Chance(s.cfg.PetTargetChance) {
		dmg := Damage(s.enemy.Attack, s.pet.Defense, s.state.PetDefending, s.cfg.DefendBonus, jitter)
		s.state.PetHP = max(0, s.state.PetHP-dmg)
		s.logf("%s attacks %s for %d damage.", s.enemy.Name, s.pet.Name, dmg)
		s.endTurn(types.ActorEnemy)
		if s.state.PetHP == 0 {
			s.state.PetAP = 0
			s.state.PetDefending = false
			s.logf("%s is knocked out!", s.pet.Name)
		}
		return
	}

	dmg := Damage(s.enemy.Attack, s.stats.Defense, s.state.PlayerDefending, s.cfg.DefendBonus, jitter)
	s.state.PlayerHP = max(0, s.state.PlayerHP-dmg)
	s.logf("%s attacks you for %d damage.", s.enemy.Name, dmg)
	s.endTurn(types.ActorEnemy)
	if s.state.PlayerHP == 0 {
		s.finish(types.OutcomeDefeat)
	}
}

func (s *Scheduler) resolveCapture() {
	s.state.CaptureAt = 0
	chance := s.cfg.CaptureChance(s.state.EnemyHP, s.state.EnemyMaxHP)
	if !s.rng.Chance(chance) {
		s.logf("%s breaks free!", s.enemy.Name)
		return
	}
	pet := types.Pet{
		TemplateID: s.enemy.TemplateID,
		Name:       s.enemy.Name,
		Level:      s.enemy.Level,
		HP:         s.enemy.MaxHP,
		MaxHP:      s.enemy.MaxHP,
		Attack:     s.enemy.Attack,
		Defense:    s.enemy.Defense,
		Speed:      s.enemy.Speed,
	}
	s.captured = &pet
	s.logf("%s is bound to you!", s.enemy.Name)
	s.emit(types.Event{
		Type: types.EventCapture,
		Text: s.enemy.Name + " joins you as a companion.",
		Data: map[string]any{"template": s.enemy.TemplateID},
	})
	s.finish(types.OutcomeCaptured)
}
