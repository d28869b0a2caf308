package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/factory"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func init() {
	factory.RegisterWriter(config.WriterCSV, func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		if def.CSV.RootPath == "" {
			return nil, errors.New("csv writer requires a root_path")
		}
		return NewCSVWriter(def.CSV.RootPath), nil
	})
}

// CSVWriter stores the export as export.csv and the report as report.csv.
type CSVWriter struct {
	rootPath string
}

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(rootPath string) model.Writer {
	return &CSVWriter{rootPath: rootPath}
}

func (w *CSVWriter) Write(result *model.Result, timestamp string) error {
	dir, err := runDir(w.rootPath, timestamp, result.RunID)
	if err != nil {
		return err
	}

	exportPath := filepath.Join(dir, "export.csv")
	if err := writeFile(exportPath, func(f *os.File) error {
		return export.WriteCSV(f, result.Export)
	}); err != nil {
		return err
	}

	if result.Report != nil {
		reportPath := filepath.Join(dir, "report.csv")
		if err := writeFile(reportPath, func(f *os.File) error {
			cw := csv.NewWriter(f)
			if err := cw.Write([]string{"metric", "value"}); err != nil {
				return err
			}
			for _, r := range result.Report.Rows() {
				if err := cw.Write([]string{r.Name, r.Value.String()}); err != nil {
					return err
				}
			}
			cw.Flush()
			return cw.Error()
		}); err != nil {
			return err
		}
	}

	zap.L().Info("wrote csv export", zap.String("dir", dir), zap.Int("values", result.Export.Len()))
	return nil
}

func (w *CSVWriter) Close() error { return nil }

func writeFile(path string, fill func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create '%s'", path)
	}
	if err := fill(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write '%s'", path)
	}
	return errors.Wrapf(f.Close(), "failed to close '%s'", path)
}
