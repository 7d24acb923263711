package session

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/rcliao/hole-sync/internal/metric"
)

// View is everything the editor needs to render the current state.
type View struct {
	Selection
	LangName string `json:"lang_name"`
	Code     string `json:"code"`
	Strokes  string `json:"strokes"`
	Picker   Picker `json:"picker"`
	// RestoreAvailable offers putting the authoritative code back.
	RestoreAvailable bool `json:"restore"`
	// DeleteAvailable offers deleting the server solutions.
	DeleteAvailable bool      `json:"delete"`
	Languages       []LangTab `json:"languages"`
}

// Picker is the metric conflict picker.
type Picker struct {
	Visible bool           `json:"visible"`
	Options []PickerOption `json:"options,omitempty"`
}

// PickerOption is one metric entry of the picker.
type PickerOption struct {
	Metric     metric.Metric `json:"metric"`
	Score      *int          `json:"score,omitempty"`
	Selectable bool          `json:"selectable"`
}

// LangTab is a language picker entry. Label shows the authoritative
// strokes, "bytes" or "bytes/chars".
type LangTab struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Active bool   `json:"active,omitempty"`
}

func (s *Session) view(ctx context.Context) View {
	lang := s.language()
	best := s.solutions.Pair(lang.ID)
	local, _ := s.drafts.Pair(ctx, s.hole, lang.ID)

	v := View{
		Selection:        s.sel,
		LangName:         lang.Name,
		Code:             s.buffer,
		Strokes:          metric.Strokes(s.buffer, lang.Metrics),
		RestoreAvailable: s.restoreAvailable(),
		DeleteAvailable: !s.experimental &&
			(best.Get(metric.Bytes) != "" || best.Get(metric.Chars) != ""),
		Languages: s.langTabs(),
	}

	if conflict(best, local, s.sel.Metric) {
		v.Picker.Visible = true
		for _, m := range metric.All {
			opt := PickerOption{Metric: m, Selectable: m != s.sel.Metric}
			code := best.Get(m)
			if code == "" {
				code = local.Get(m)
			}
			if code != "" {
				score := metric.Score(m, code)
				opt.Score = &score
			}
			v.Picker.Options = append(v.Picker.Options, opt)
		}
	}
	return v
}

// conflict reports whether the metric picker must be shown. Empty strings
// are absent entries.
func conflict(best, local metric.Pair[string], active metric.Metric) bool {
	dbBytes, dbChars := best.Get(metric.Bytes), best.Get(metric.Chars)
	lsBytes, lsChars := local.Get(metric.Bytes), local.Get(metric.Chars)

	return (dbBytes != "" && dbChars != "" && dbBytes != dbChars) ||
		(lsBytes != "" && lsChars != "" && lsBytes != lsChars) ||
		(dbBytes != "" && lsChars != "" && dbBytes != lsChars && active == metric.Bytes) ||
		(lsBytes != "" && dbChars != "" && lsBytes != dbChars && active == metric.Chars)
}

func (s *Session) langTabs() []LangTab {
	langs := s.registry.Sorted()
	tabs := make([]LangTab, 0, len(langs))
	for _, l := range langs {
		tab := LangTab{ID: l.ID, Name: l.Name, Active: l.ID == s.sel.Lang}
		best := s.solutions.Pair(l.ID)
		if code := best.Get(metric.Bytes); code != "" {
			bytes := metric.Score(metric.Bytes, code)
			chars := metric.Score(metric.Chars, best.Get(metric.Chars))
			tab.Label = humanize.Comma(int64(bytes))
			if chars != 0 && bytes != chars {
				tab.Label += "/" + humanize.Comma(int64(chars))
			}
		}
		tabs = append(tabs, tab)
	}
	return tabs
}
