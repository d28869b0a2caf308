package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/factory"
	"github.com/networmix/ee500-wifi/internal/metrics"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	nameWidth  = 60
	valueWidth = 20
)

func init() {
	factory.RegisterWriter(config.WriterText, func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		return NewTextWriter(def.Text.RootPath, os.Stdout), nil
	})
}

// TextWriter renders the report as three tables: metadata, counters and
// metrics. With an empty root path it prints to out instead of a file.
type TextWriter struct {
	rootPath string
	out      io.Writer
}

// NewTextWriter creates a new text writer.
func NewTextWriter(rootPath string, out io.Writer) model.Writer {
	return &TextWriter{rootPath: rootPath, out: out}
}

func (w *TextWriter) Write(result *model.Result, timestamp string) error {
	if w.rootPath == "" {
		return RenderText(w.out, result)
	}

	dir, err := runDir(w.rootPath, timestamp, result.RunID)
	if err != nil {
		return err
	}
	filePath := filepath.Join(dir, "report.txt")
	if err := writeFile(filePath, func(f *os.File) error {
		return RenderText(f, result)
	}); err != nil {
		return err
	}
	zap.L().Info("wrote text report", zap.String("path", filePath))
	return nil
}

func (w *TextWriter) Close() error { return nil }

// RenderText writes the metadata, counter and metric tables of a result.
func RenderText(out io.Writer, result *model.Result) error {
	var b strings.Builder

	tableHeader(&b, "Metadata")
	for _, k := range result.Export.MetadataKeys() {
		v, _ := result.Export.Metadata(k)
		row(&b, k, v)
	}
	b.WriteString("\n")

	tableHeader(&b, "Counter")
	for _, k := range result.Export.Keys() {
		row(&b, k, metrics.FormatNumber(result.Export.Get(k)))
	}
	b.WriteString("\n")

	if result.Report != nil {
		tableHeader(&b, "Metric")
		for _, r := range result.Report.Rows() {
			row(&b, r.Name+":", r.Value.String())
		}
	}

	_, err := io.WriteString(out, b.String())
	return errors.Wrap(err, "failed to write text report")
}

func tableHeader(b *strings.Builder, title string) {
	row(b, title, "Value")
	b.WriteString(strings.Repeat("-", nameWidth+valueWidth))
	b.WriteString("\n")
}

func row(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "%-*s%-*s\n", nameWidth, name, valueWidth, value)
}

// runDir creates <root>/<timestamp>/<run> and returns its path.
func runDir(root, timestamp, runID string) (string, error) {
	dir := filepath.Join(root, timestamp, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create result directory")
	}
	return dir, nil
}
