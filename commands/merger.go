// Package commands builds the public command list: the fixed catalog followed by the
// custom commands from the store, grouped by category.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/onnwee/command-tender/backend/catalog"
	"github.com/onnwee/command-tender/backend/store"
	"github.com/onnwee/command-tender/backend/telemetry"
)

// CustomCategory is the label of the category holding store entries.
const CustomCategory = catalog.CustomCategory

// Entry is one display row.
type Entry struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Aliases       []string `json:"aliases"`
	ModeratorOnly bool     `json:"moderatorOnly"`
}

// Category is a named group of display rows.
type Category struct {
	Name    string
	Entries []Entry
}

// View is the ordered, categorized command list. It serializes as a JSON object whose
// keys appear in category order.
type View []Category

// Lookup returns the entries of the named category.
func (v View) Lookup(name string) ([]Entry, bool) {
	for _, c := range v {
		if c.Name == name {
			return c.Entries, true
		}
	}
	return nil, false
}

// MarshalJSON writes {"<category>": [entries...], ...} preserving order.
func (v View) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		entries := c.Entries
		if entries == nil {
			entries = []Entry{}
		}
		e, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(e)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Merger combines a fixed catalog with the current store contents.
type Merger struct {
	catalog *catalog.Catalog
	store   store.Store
}

// NewMerger returns a Merger over cat and st.
func NewMerger(cat *catalog.Catalog, st store.Store) *Merger {
	return &Merger{catalog: cat, store: st}
}

// Render builds the view. A failing store read is logged and counted, and the custom
// category is left out as if the store were empty; Render itself never fails.
func (m *Merger) Render(ctx context.Context) View {
	ctx, span := telemetry.StartSpan(ctx, "commands", "render")
	defer span.End()

	var view View
	telemetry.TimeFunc(telemetry.RenderDuration, func() {
		for _, cat := range m.catalog.Categories() {
			entries := make([]Entry, 0, len(cat.Commands))
			for _, d := range cat.Commands {
				entries = append(entries, Entry{
					Name:          d.Name,
					Description:   d.Description,
					Aliases:       d.Aliases,
					ModeratorOnly: d.ModeratorOnly,
				})
			}
			view = append(view, Category{Name: cat.Name, Entries: entries})
		}

		custom, err := m.store.List(ctx)
		if err != nil {
			telemetry.LoggerWithCorr(ctx).Error("custom command read failed; rendering catalog only",
				slog.Any("err", err), slog.String("component", "commands"))
			telemetry.RecordStoreReadFailure()
			telemetry.RecordError(span, err)
			return
		}
		telemetry.SetSpanSuccess(span)
		telemetry.SetCustomCommands(len(custom))
		if len(custom) == 0 {
			return
		}
		entries := make([]Entry, 0, len(custom))
		for _, c := range custom {
			entries = append(entries, Entry{
				Name:        store.DisplayName(c.Name),
				Description: c.Response,
				Aliases:     []string{},
			})
		}
		view = append(view, Category{Name: CustomCategory, Entries: entries})
	})
	if view == nil {
		view = View{}
	}
	return view
}
