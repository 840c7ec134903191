// Package nav builds the navigation panel: the stations a user may view and,
// for the admin, the cross-station comparison entry.
package nav

import (
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

// ComparisonTarget selects the admin cross-station view.
const ComparisonTarget = "comparison"

// Section titles and the comparison label.
const (
	SectionOwn      = "我的轉運站"
	SectionAll      = "全部轉運站"
	ComparisonLabel = "比較全部"
)

// Entry is one selectable navigation link.
type Entry struct {
	Target string `json:"target"`
	Label  string `json:"label"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Active bool   `json:"active"`
}

// Section groups entries under a title.
type Section struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Panel is the navigation of one dashboard. At most one entry is active.
type Panel struct {
	Sections []Section `json:"sections"`
}

// Build lists the caller's own station first. The admin additionally gets
// every other known station and the comparison entry.
func Build(s session.Session, dir source.Directory) Panel {
	own := Entry{Target: s.StationCode, Label: s.StationCode, Name: s.DisplayName}
	if st, ok := dir.Get(s.StationCode); ok {
		own.Name = st.Name
		own.Color = st.Color
	}
	p := Panel{Sections: []Section{{Title: SectionOwn, Entries: []Entry{own}}}}
	if !s.IsAdmin {
		return p
	}

	all := Section{Title: SectionAll}
	for _, code := range dir.Codes() {
		if code == s.StationCode {
			continue
		}
		st := dir[code]
		all.Entries = append(all.Entries, Entry{Target: code, Label: code, Name: st.Name, Color: st.Color})
	}
	all.Entries = append(all.Entries, Entry{Target: ComparisonTarget, Label: ComparisonLabel})
	p.Sections = append(p.Sections, all)
	return p
}

// Contains reports whether target is one of the panel's entries.
func (p Panel) Contains(target string) bool {
	for _, e := range p.Entries() {
		if e.Target == target {
			return true
		}
	}
	return false
}

// SetActive marks target as the only active entry. It reports false and
// leaves the panel unchanged when target is not listed.
func (p *Panel) SetActive(target string) bool {
	if !p.Contains(target) {
		return false
	}
	for i := range p.Sections {
		for j := range p.Sections[i].Entries {
			e := &p.Sections[i].Entries[j]
			e.Active = e.Target == target
		}
	}
	return true
}

// Active returns the active target, or "" before any selection.
func (p Panel) Active() string {
	for _, e := range p.Entries() {
		if e.Active {
			return e.Target
		}
	}
	return ""
}

// Entries returns every entry in display order.
func (p Panel) Entries() []Entry {
	var out []Entry
	for _, s := range p.Sections {
		out = append(out, s.Entries...)
	}
	return out
}

// Clone returns a deep copy.
func (p Panel) Clone() Panel {
	out := Panel{Sections: make([]Section, len(p.Sections))}
	for i, s := range p.Sections {
		out.Sections[i] = Section{Title: s.Title, Entries: append([]Entry(nil), s.Entries...)}
	}
	return out
}
