// Command compare lines up two detection reports frame by frame and prints the confidence change per label.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo/annotations"
	"github.com/nvr-ai/go-yolo/logger"
)

func main() {
	parser := argparse.NewParser("compare", "Compare the per-frame confidences of two detection reports")
	first := parser.String("a", "first", &argparse.Options{Help: "First report", Required: true})
	second := parser.String("b", "second", &argparse.Options{Help: "Second report", Required: true})
	labels := parser.String("l", "labels", &argparse.Options{Help: "Comma-separated labels to compare (default: every label in either report)", Default: ""})
	csv := parser.Flag("", "csv", &argparse.Options{Help: "Write CSV instead of a table", Default: false})
	noColor := parser.Flag("", "no-color", &argparse.Options{Help: "Disable colored output", Default: false})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Verbose development logging", Default: false})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if err := logger.Init(*verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a, err := annotations.Load(*first)
	if err != nil {
		logger.Log().Fatal("failed to load first report", zap.Error(err))
	}
	b, err := annotations.Load(*second)
	if err != nil {
		logger.Log().Fatal("failed to load second report", zap.Error(err))
	}
	logger.Log().Debug("loaded reports", zap.Int("first_frames", a.Len()), zap.Int("second_frames", b.Len()))

	if *noColor || *csv {
		color.NoColor = true
	}

	rows := annotations.Compare(a, b, splitLabels(*labels))
	render(os.Stdout, rows, *csv)
	fmt.Printf("Compared %d rows.\n", len(rows))
}

// splitLabels parses a comma-separated label filter. Blank entries are dropped.
func splitLabels(s string) []string {
	var labels []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// render writes rows as a table, or as CSV when csv is set.
func render(w io.Writer, rows []annotations.Row, csv bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Frame", "Label", "File 1 Confidence", "File 2 Confidence", "Change"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Frame, r.Label, r.Confidence1(), r.Confidence2(), colorChange(r)})
	}
	if csv {
		t.RenderCSV()
		return
	}
	t.Render()
}

// colorChange colors increases green and decreases red.
func colorChange(r annotations.Row) string {
	d, ok := r.Diff()
	switch {
	case !ok:
		return r.Change()
	case d > 0:
		return color.GreenString(r.Change())
	case d < 0:
		return color.RedString(r.Change())
	default:
		return r.Change()
	}
}
