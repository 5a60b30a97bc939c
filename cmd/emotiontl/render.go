package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/emotion-timeline/internal/timeline"
	"github.com/codebuildervaibhav/emotion-timeline/internal/types"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 14

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	status := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	if colorize {
		return statusKindColor(kind) + line + ansiReset
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		line = ansiBlue + line + ansiReset
	}
	return []string{line}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderTimeline prints the intervals as a table followed by a summary
func renderTimeline(result *types.AnalysisResult, colorize bool) string {
	rows := make([][]string, 0, len(result.Intervals))
	for _, iv := range result.Intervals {
		rows = append(rows, []string{iv.Time, iv.Emotion, iv.Duration})
	}

	var b strings.Builder
	b.WriteString(renderTable([]string{"Time", "Emotion", "Duration"}, rows, []text.Align{text.AlignRight, text.AlignLeft, text.AlignRight}))
	b.WriteString("\n")

	summary := fmt.Sprintf("%.1fs analysed in %d windows, %d distinct emotions",
		result.Duration, result.Windows, result.UniqueEmotions)
	b.WriteString(renderStatusLine("Summary", statusInfo, summary, colorize))
	b.WriteString("\n")
	if result.SkippedWindows > 0 {
		msg := fmt.Sprintf("%d of %d windows could not be classified", result.SkippedWindows, result.Windows)
		b.WriteString(renderStatusLine("Skipped", statusWarn, msg, colorize))
		b.WriteString("\n")
	}
	return b.String()
}

func renderWindowLine(r timeline.WindowResult, colorize bool) string {
	label := fmt.Sprintf("%s-%s", timeline.FormatTimestamp(r.Window.Start), timeline.FormatTimestamp(r.Window.End))
	if r.Outcome == timeline.Skipped {
		return renderStatusLine(label, statusWarn, fmt.Sprintf("skipped: %v", r.Reason), colorize)
	}
	return renderStatusLine(label, statusOK, r.Label, colorize)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
