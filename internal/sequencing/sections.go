package sequencing

import "context"

// SectionMinutes is the time reserved for the non-movement parts of a class.
type SectionMinutes struct {
	Preparation int `json:"preparation"`
	Warmup      int `json:"warmup"`
	Cooldown    int `json:"cooldown"`
	Meditation  int `json:"meditation"`
	Homecare    int `json:"homecare"`
}

// Total sums every section.
func (s SectionMinutes) Total() int {
	return s.Preparation + s.Warmup + s.Cooldown + s.Meditation + s.Homecare
}

// StaticSectionPlanner is the built-in section table used when no planner is configured or
// the configured one fails.
type StaticSectionPlanner struct{}

// Sections returns the section plan for a class length.
func (StaticSectionPlanner) Sections(targetMinutes int) SectionMinutes {
	switch {
	case targetMinutes == QuickPracticeMinutes:
		return SectionMinutes{}
	case targetMinutes <= 30:
		return SectionMinutes{Preparation: 2, Warmup: 3, Cooldown: 3, Meditation: 2, Homecare: 1}
	case targetMinutes <= 60:
		return SectionMinutes{Preparation: 3, Warmup: 4, Cooldown: 4, Meditation: 3, Homecare: 1}
	default:
		return SectionMinutes{Preparation: 3, Warmup: 5, Cooldown: 5, Meditation: 5, Homecare: 2}
	}
}

// SectionOverheadMinutes implements domain.SectionPlanner.
func (p StaticSectionPlanner) SectionOverheadMinutes(_ context.Context, targetMinutes int) (int, error) {
	return p.Sections(targetMinutes).Total(), nil
}
