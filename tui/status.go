package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/wayfarer/engine/combat"
	"github.com/nathoo/wayfarer/types"
)

const gaugeWidth = 10

// gaugeCells returns how many of width cells a cur/max gauge fills. Any
// positive value shows at least one cell.
func gaugeCells(cur, max float64, width int) int {
	if max <= 0 || cur <= 0 || width <= 0 {
		return 0
	}
	n := int(cur / max * float64(width))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return n
}

// gauge renders "label [####------]" in the given fill style.
func gauge(label string, cur, max float64, fill lipgloss.Style) string {
	n := gaugeCells(cur, max, gaugeWidth)
	return label + " [" + fill.Render(strings.Repeat("#", n)) +
		gaugeEmpty.Render(strings.Repeat("-", gaugeWidth-n)) + "]"
}

func hpGauge(hp, maxHP int) string {
	style := gaugeHP
	if maxHP > 0 && hp*4 <= maxHP {
		style = gaugeHPLow
	}
	return gauge("HP", float64(hp), float64(maxHP), style) + fmt.Sprintf(" %d/%d", hp, maxHP)
}

// renderStatusBar produces a full-width status line. Outside combat it
// shows the location, level, HP/MP gauges and gold; during an encounter
// it shows both sides' HP and AP gauges.
func (m Model) renderStatusBar() string {
	var left, right string
	if m.view.inCombat {
		left, right = combatStatus(m.view.combat)
	} else {
		p := m.view.stats
		left = fmt.Sprintf(" %s | Lv %d | %s | %s %d/%d",
			p.LocationName, p.Level,
			hpGauge(p.HP, p.MaxHP),
			gauge("MP", float64(p.MP), float64(p.MaxMP), gaugeMP), p.MP, p.MaxMP)
		right = fmt.Sprintf("Gold %d | XP %d/%d ", p.Gold, p.Exp, p.MaxExp)
		if m.busy {
			right = "... " + right
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		// Drop the right side before the gauges.
		right = ""
		gap = m.width - lipgloss.Width(left)
		if gap < 0 {
			gap = 0
		}
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

func combatStatus(st types.CombatState) (string, string) {
	turn := ""
	switch st.Turn {
	case types.ActorPlayer:
		turn = " YOUR TURN"
	case types.ActorPet:
		turn = " PET'S TURN"
	}
	left := fmt.Sprintf(" %s %s%s",
		hpGauge(st.PlayerHP, st.PlayerMaxHP),
		gauge("AP", st.PlayerAP, combat.MaxAP, gaugeAP), turn)
	if st.PetName != "" {
		left += fmt.Sprintf(" | %s %s", st.PetName, gauge("AP", st.PetAP, combat.MaxAP, gaugeAP))
	}
	right := fmt.Sprintf("%s %s %s ",
		st.EnemyName,
		hpGauge(st.EnemyHP, st.EnemyMaxHP),
		gauge("AP", st.EnemyAP, combat.MaxAP, gaugeAP))
	return left, right
}
