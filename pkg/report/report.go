// Package report renders discovery results for the terminal and for tools.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
	"github.com/Sumatoshi-tech/modelfinder/pkg/relations"
)

// Formats.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

const yamlIndent = 2

// Options controls rendering.
type Options struct {
	Format  string
	NoColor bool
}

// Write renders scan to w in the requested format.
func Write(w io.Writer, scan *discovery.Scan, opts Options) error {
	var err error

	switch opts.Format {
	case FormatText, "":
		err = writeText(w, scan)
	case FormatTable:
		err = writeTable(w, scan, opts.NoColor)
	case FormatJSON:
		err = writeJSON(w, scan)
	case FormatYAML:
		err = writeYAML(w, scan)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}

	if err != nil {
		return fmt.Errorf("write %s report: %w", opts.Format, err)
	}

	return nil
}

// writeText prints one model per line, followed by its relations indented
// when they were requested.
func writeText(w io.Writer, scan *discovery.Scan) error {
	var sb strings.Builder

	for _, model := range scan.Models {
		sb.WriteString(model.Name)
		sb.WriteByte('\n')

		for _, rel := range model.Relations {
			sb.WriteString("  ")
			sb.WriteString(describeRelation(rel))
			sb.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func writeTable(w io.Writer, scan *discovery.Scan, noColor bool) error {
	nameColor := color.New(color.FgCyan, color.Bold)
	parentColor := color.New(color.Faint)

	if noColor {
		nameColor.DisableColor()
		parentColor.DisableColor()
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"#", "Model", "Parent", "Relations", "Path"})

	for idx, model := range scan.Models {
		rels := make([]string, 0, len(model.Relations))
		for _, rel := range model.Relations {
			rels = append(rels, describeRelation(rel))
		}

		tbl.AppendRow(table.Row{
			idx + 1,
			nameColor.Sprint(model.Name),
			parentColor.Sprint(model.Parent),
			strings.Join(rels, "\n"),
			model.Path,
		})
	}

	tbl.AppendFooter(table.Row{"", summary(scan), "", "", ""})

	_, err := fmt.Fprintln(w, tbl.Render())

	return err
}

func writeJSON(w io.Writer, scan *discovery.Scan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(scan)
}

func writeYAML(w io.Writer, scan *discovery.Scan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(scan)
	if err != nil {
		return err
	}

	return enc.Close()
}

func describeRelation(rel relations.ModelRelation) string {
	desc := fmt.Sprintf("%s %s %s", rel.Name, rel.Type, rel.Model)

	keys := make([]string, 0, 2)
	if rel.ForeignKey != "" {
		keys = append(keys, rel.ForeignKey)
	}

	if rel.LocalKey != "" {
		keys = append(keys, rel.LocalKey)
	}

	if len(keys) > 0 {
		desc += " (" + strings.Join(keys, ", ") + ")"
	}

	return desc
}

// summary is the table footer, e.g. "2 models in 3 files (1.2 kB, 4ms)".
func summary(scan *discovery.Scan) string {
	return fmt.Sprintf("%s models in %s files (%s, %s)",
		humanize.Comma(int64(len(scan.Models))),
		humanize.Comma(int64(scan.Stats.Files)),
		humanize.Bytes(uint64(max(scan.Stats.Bytes, 0))), //nolint:gosec // clamped above.
		scan.Stats.Duration.Round(time.Millisecond),
	)
}
