package view

import "slices"

// Section names a separately redrawn part of the board.
type Section string

const (
	SectionScores  Section = "scores"
	SectionStatus  Section = "status"
	SectionButtons Section = "buttons"
	SectionCards   Section = "cards"
	SectionLog     Section = "log"
)

// Changed lists the sections that differ between two models, so a presenter
// redraws only those. Equal models yield nil.
func Changed(prev, next Model) []Section {
	var out []Section
	if prev.MyScore != next.MyScore || prev.OpponentScore != next.OpponentScore ||
		prev.TargetScore != next.TargetScore || prev.HandLabel != next.HandLabel {
		out = append(out, SectionScores)
	}
	if prev.Status != next.Status || prev.Phase != next.Phase {
		out = append(out, SectionStatus)
	}
	if !slices.Equal(prev.Buttons, next.Buttons) {
		out = append(out, SectionButtons)
	}
	if !slices.Equal(prev.MyHand, next.MyHand) || !slices.Equal(prev.OpponentHand, next.OpponentHand) ||
		!slices.Equal(prev.MyPlayed, next.MyPlayed) || !slices.Equal(prev.OpponentPlayed, next.OpponentPlayed) {
		out = append(out, SectionCards)
	}
	if !slices.Equal(prev.Log, next.Log) {
		out = append(out, SectionLog)
	}
	return out
}

// Has reports whether s is among the changed sections.
func Has(sections []Section, s Section) bool { return slices.Contains(sections, s) }
