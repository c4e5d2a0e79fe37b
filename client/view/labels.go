package view

import "strings"

var actionLabels = map[string]string{
	"call_envido":       "Envido",
	"call_real_envido":  "Real Envido",
	"call_falta_envido": "Falta Envido",
	"envido_quiero":     "Quiero",
	"envido_no_quiero":  "No Quiero",
	"call_truco":        "Truco!",
	"call_retruco":      "Retruco!",
	"call_vale_4":       "Vale Cuatro!",
	"truco_quiero":      "Quiero",
	"truco_no_quiero":   "Me voy al mazo",
}

// Label is the button text for an action id. Unknown ids are shown raw so a
// newer engine still gets working buttons.
func Label(action string) string {
	if l, ok := actionLabels[action]; ok {
		return l
	}
	return action
}

type Style string

const (
	Primary   Style = "primary"
	Secondary Style = "secondary"
	Danger    Style = "danger"
)

func styleFor(action string) Style {
	switch {
	case strings.Contains(action, "no_quiero"):
		return Danger
	case strings.Contains(action, "quiero"):
		return Primary
	default:
		return Secondary
	}
}

// splitCard turns "1 de Espada" into rank and suit. Labels without the
// separator keep everything in the rank.
func splitCard(label string) (rank, suit string) {
	if i := strings.Index(label, " de "); i >= 0 {
		return label[:i], label[i+len(" de "):]
	}
	return label, ""
}
