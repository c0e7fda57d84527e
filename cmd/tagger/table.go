package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pkordes/lostfound/backend/internal/tagging"
	"github.com/pkordes/lostfound/backend/internal/vocabulary"
)

// lookuper is implemented by vocabularies that can tell known labels apart.
type lookuper interface {
	Lookup(label string) (string, bool)
}

func newTable(header table.Row, rightAligned ...int) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		align := text.AlignLeft
		for _, n := range rightAligned {
			if n == i+1 {
				align = text.AlignRight
			}
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// renderDecisions lists every candidate with its outcome.
func renderDecisions(decisions []tagging.Decision) string {
	tw := newTable(table.Row{"Label", "Modality", "Confidence", "Kept", "Tag / Reason"}, 3)
	for _, d := range decisions {
		outcome := d.Display
		if !d.Kept {
			outcome = d.Reason
		}
		kept := "no"
		if d.Kept {
			kept = "yes"
		}
		tw.AppendRow(table.Row{
			d.Candidate.Label,
			string(d.Candidate.Modality),
			strconv.FormatFloat(d.Candidate.Confidence, 'f', 2, 64),
			kept,
			outcome,
		})
	}
	if len(decisions) == 0 {
		tw.AppendFooter(table.Row{"no candidates", "", "", "", ""})
	}
	return tw.Render()
}

// renderTranslations shows each label's display tag and whether the
// vocabulary knows it.
func renderTranslations(v vocabulary.Vocabulary, labels []string) string {
	tw := newTable(table.Row{"Label", "Tag", "Known"})
	lk, canLookup := v.(lookuper)
	for _, label := range labels {
		known := "-"
		if canLookup {
			known = "no"
			if _, ok := lk.Lookup(label); ok {
				known = "yes"
			}
		}
		tw.AppendRow(table.Row{label, v.Translate(label), known})
	}
	return tw.Render()
}
