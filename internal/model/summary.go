package model

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// FlexString accepts either a JSON string or an array of strings. Model
// replies are not consistent about which one they send.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*f = FlexString(strings.Join(parts, ", "))
	return nil
}

type Summary struct {
	KeyThemes      []string   `json:"key_themes"`
	Insights       []string   `json:"insights"`
	Challenges     FlexString `json:"challenges"`
	Progress       FlexString `json:"progress"`
	EmotionalState FlexString `json:"emotional_state"`
	ActionItems    []string   `json:"action_items"`
}

func (s Summary) Clone() Summary {
	s.KeyThemes = slices.Clone(s.KeyThemes)
	s.Insights = slices.Clone(s.Insights)
	s.ActionItems = slices.Clone(s.ActionItems)
	return s
}

type SummarySnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   Summary   `json:"summary"`
}

type EmotionalShift struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type SignificantChanges struct {
	ThemesAdded    []string        `json:"themes_added,omitempty"`
	ThemesRemoved  []string        `json:"themes_removed,omitempty"`
	NewInsights    []string        `json:"new_insights,omitempty"`
	EmotionalShift *EmotionalShift `json:"emotional_shift,omitempty"`
}

func (c SignificantChanges) IsEmpty() bool {
	return len(c.ThemesAdded) == 0 && len(c.ThemesRemoved) == 0 &&
		len(c.NewInsights) == 0 && c.EmotionalShift == nil
}

func (c SignificantChanges) Clone() SignificantChanges {
	c.ThemesAdded = slices.Clone(c.ThemesAdded)
	c.ThemesRemoved = slices.Clone(c.ThemesRemoved)
	c.NewInsights = slices.Clone(c.NewInsights)
	if c.EmotionalShift != nil {
		shift := *c.EmotionalShift
		c.EmotionalShift = &shift
	}
	return c
}
