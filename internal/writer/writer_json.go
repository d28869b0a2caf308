package writer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/factory"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func init() {
	factory.RegisterWriter(config.WriterJSON, func(def config.WriterDef, _ *config.Config) (model.Writer, error) {
		if def.JSON.RootPath == "" {
			return nil, errors.New("json writer requires a root_path")
		}
		return NewJSONWriter(def.JSON.RootPath, def.JSON.Indent), nil
	})
}

// JSONWriter stores the whole result as result.json.
type JSONWriter struct {
	rootPath string
	indent   bool
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter(rootPath string, indent bool) model.Writer {
	return &JSONWriter{rootPath: rootPath, indent: indent}
}

func (w *JSONWriter) Write(result *model.Result, timestamp string) error {
	dir, err := runDir(w.rootPath, timestamp, result.RunID)
	if err != nil {
		return err
	}
	filePath := filepath.Join(dir, "result.json")
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create result file '%s'", filePath)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if w.indent {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(result); err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	zap.L().Info("wrote json result", zap.String("path", filePath))
	return nil
}

func (w *JSONWriter) Close() error { return nil }
