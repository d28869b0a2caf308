package factory

import (
	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WriterFactory builds a writer from its definition. cfg is the whole
// configuration, for writers that need the run description.
type WriterFactory func(def config.WriterDef, cfg *config.Config) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic("writer type '" + name + "' already registered")
	}
	registry[name] = factory
}

// Registered reports whether a writer type has a factory.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// Create builds every enabled writer in the config. A writer that fails
// to initialise is logged and skipped; an unknown type is an error.
func Create(cfg *config.Config) ([]model.Writer, error) {
	writers := make([]model.Writer, 0, len(cfg.Writers))

	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}

		factory, ok := registry[def.Type]
		if !ok {
			return nil, errors.Errorf("unknown writer type: '%s'", def.Type)
		}

		w, err := factory(def, cfg)
		if err != nil {
			zap.L().Warn("failed to create writer, skipping", zap.String("type", def.Type), zap.Error(err))
			continue
		}
		zap.L().Info("writer created", zap.String("type", def.Type))
		writers = append(writers, w)
	}

	return writers, nil
}
