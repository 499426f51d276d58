package world

import "sort"

const (
	BlockRepeat = "maze_repeat"
	// ProcedureMarker is recorded when the toolbox has a PROCEDURE custom category.
	ProcedureMarker = "PROCEDURE"
)

type Toolbox struct {
	Kind     string        `json:"kind,omitempty"`
	Contents []ToolboxItem `json:"contents,omitempty"`
}

type ToolboxItem struct {
	Kind          string        `json:"kind"`
	Type          string        `json:"type,omitempty"`
	Name          string        `json:"name,omitempty"`
	CategoryStyle string        `json:"categorystyle,omitempty"`
	Custom        string        `json:"custom,omitempty"`
	Contents      []ToolboxItem `json:"contents,omitempty"`
}

// WithEvents returns a copy of tb with the Events category holding the
// maze_start block prepended.
func (tb Toolbox) WithEvents() Toolbox {
	events := ToolboxItem{
		Kind:          "category",
		Name:          "Events",
		CategoryStyle: "procedure_category",
		Contents:      []ToolboxItem{{Kind: "block", Type: "maze_start"}},
	}
	out := Toolbox{Kind: tb.Kind}
	if out.Kind == "" {
		out.Kind = "categoryToolbox"
	}
	out.Contents = make([]ToolboxItem, 0, len(tb.Contents)+1)
	out.Contents = append(out.Contents, events)
	out.Contents = append(out.Contents, tb.Contents...)
	return out
}

// Vocabulary is the set of block types a toolbox makes available.
type Vocabulary map[string]struct{}

func VocabularyOf(tb Toolbox) Vocabulary {
	v := Vocabulary{}
	var walk func(items []ToolboxItem)
	walk = func(items []ToolboxItem) {
		for _, it := range items {
			switch it.Kind {
			case "block":
				if it.Type != "" {
					v[it.Type] = struct{}{}
				}
			case "category":
				if it.Custom == "PROCEDURE" {
					v[ProcedureMarker] = struct{}{}
				}
				walk(it.Contents)
			}
		}
	}
	walk(tb.Contents)
	return v
}

func (v Vocabulary) Has(blockType string) bool {
	_, ok := v[blockType]
	return ok
}

func (v Vocabulary) Sorted() []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
