package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/engine/manager"
	"github.com/networmix/ee500-wifi/internal/engine/protocol"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/probe/persistent"
	"github.com/networmix/ee500-wifi/internal/writer"
	"github.com/networmix/ee500-wifi/pkg/pcap"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeShort = "Run the statistics engine over a capture or an event trace."
	analyzeLong  = `
		Feed every event of one experiment run to the statistics engine and hand
		the result to the writers configured in the config file.

		Events come either from a RadioTap monitor capture (--pcap), from which PHY
		and MAC events are rebuilt, or from a JSONL event trace (--trace), which
		also carries application events. When no writer is enabled the text report
		is printed on stdout.`
	analyzeExample = `
		# Analyse a JSONL trace with the writers from the config
		wifi-stats analyze --trace run.jsonl

		# Analyse a monitor capture and keep a JSONL copy of the events
		wifi-stats analyze --pcap run.pcap --record ./records`
)

// analyzeFlags are converted to analyzeOptions before running.
type analyzeFlags struct {
	Pcap  string
	Trace string

	RunID string

	Record   string
	Encoding string
}

type analyzeOptions struct {
	analyzeFlags
	cfg *config.Config
	out io.Writer
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:     "analyze",
		Short:   analyzeShort,
		Long:    analyzeLong,
		Example: analyzeExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			o := &analyzeOptions{analyzeFlags: *flags, cfg: cfg, out: cmd.OutOrStdout()}
			_, err = o.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&flags.Pcap, "pcap", "", "RadioTap monitor capture to read.")
	cmd.Flags().StringVar(&flags.Trace, "trace", "", "JSONL event trace to read.")
	cmd.Flags().StringVar(&flags.RunID, "run-id", "", "Override run.run_id from the config.")
	cmd.Flags().StringVar(&flags.Record, "record", "", "Directory to record the events to. Overrides record.path.")
	cmd.Flags().StringVar(&flags.Encoding, "encoding", "", "Record encoding, jsonl or pcap. Overrides record.encoding.")
	return cmd
}

func (f *analyzeFlags) validate() error {
	if (f.Pcap == "") == (f.Trace == "") {
		return errors.New("exactly one of --pcap or --trace is required")
	}
	switch f.Encoding {
	case "", config.EncodingJSONL, config.EncodingPcap:
	default:
		return errors.Errorf("unknown record encoding '%s'", f.Encoding)
	}
	return nil
}

func (f *analyzeFlags) source() string {
	if f.Pcap != "" {
		return f.Pcap
	}
	return f.Trace
}

// Run feeds the source to a manager and returns the written result. An
// interrupted read still produces a result covering the events seen.
func (o *analyzeOptions) Run(ctx context.Context) (*model.Result, error) {
	cfg := o.cfg
	if o.RunID != "" {
		cfg.Run.RunID = o.RunID
	}
	if cfg.Run.Input == "" {
		cfg.Run.Input = filepath.Base(o.source())
	}
	if o.Record != "" {
		cfg.Record.Path = o.Record
	}
	if o.Encoding != "" {
		cfg.Record.Encoding = o.Encoding
	}

	// The recorder goes first: writers may hold connections that only
	// Stop releases.
	var rec *persistent.Recorder
	var err error
	if cfg.Record.Path != "" {
		if rec, err = persistent.NewRecorder(cfg.Record, cfg.Run.RunID); err != nil {
			return nil, err
		}
	}

	m, err := manager.NewManager(cfg)
	if err != nil {
		if rec != nil {
			rec.Close()
		}
		return nil, err
	}
	if m.Writers() == 0 {
		m.AddWriter(writer.NewTextWriter("", o.out))
	}

	m.Start()

	var events int
	readErr := o.read(func(ev model.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec != nil {
			rec.Enqueue(ev)
		}
		m.Input() <- ev
		events++
		return nil
	})

	if rec != nil {
		if err := rec.Close(); err != nil {
			zap.L().Warn("Failed to close event record", zap.Error(err))
		}
	}

	res, err := m.Stop()
	zap.L().Info("Run analysed", zap.String("run", cfg.Run.RunID), zap.Int("events", events))

	if readErr != nil {
		if errors.Is(readErr, context.Canceled) {
			zap.L().Warn("Interrupted, the result covers the events read so far")
			return res, err
		}
		return res, errors.Wrapf(readErr, "failed to read %s", o.source())
	}
	return res, err
}

func (o *analyzeOptions) read(fn func(model.Event) error) error {
	if o.Pcap != "" {
		r, err := pcap.NewReader(o.Pcap, o.cfg.HubAddr(), o.cfg.StationAddrs())
		if err != nil {
			return err
		}
		defer r.Close()
		return r.ReadEvents(fn)
	}

	f, err := os.Open(o.Trace)
	if err != nil {
		return errors.Wrap(err, "failed to open trace")
	}
	defer f.Close()
	return protocol.DecodeTrace(bufio.NewReader(f), fn)
}
