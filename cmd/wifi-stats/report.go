package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/query"
	"github.com/networmix/ee500-wifi/internal/writer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	reportShort = "Print the report of a stored run."
	reportLong  = `
		Rebuild the metrics of a run from its flattened export and print them.

		The export is read from a file written by the json or csv writer (--from),
		or from ClickHouse by run id (--run-id), using the first enabled clickhouse
		writer of the config. Rates need the duration and packetSize metadata of
		the run.`
	reportExample = `
		# Text report from a CSV export
		wifi-stats report --from out/2024-05-01_12-00-00/run-1/export.csv

		# JSON report of a run stored in ClickHouse
		wifi-stats report --run-id run-1 --json`
)

type reportFlags struct {
	From  string
	RunID string
	JSON  bool
}

func newReportCmd(root *rootOptions) *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:     "report",
		Short:   reportShort,
		Long:    reportLong,
		Example: reportExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (flags.From == "") == (flags.RunID == "") {
				return errors.New("exactly one of --from or --run-id is required")
			}
			res, err := flags.load(cmd.Context(), root)
			if err != nil {
				return err
			}
			return flags.print(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&flags.From, "from", "", "Export file (.json or .csv) to read.")
	cmd.Flags().StringVar(&flags.RunID, "run-id", "", "Run to load from ClickHouse.")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the result as JSON instead of text tables.")
	return cmd
}

func (f *reportFlags) load(ctx context.Context, root *rootOptions) (*model.Result, error) {
	if f.From != "" {
		fe, err := export.Load(f.From)
		if err != nil {
			return nil, err
		}
		return model.NewResult(fe, time.Now().UTC()), nil
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	ch, ok := cfg.ClickHouse()
	if !ok {
		return nil, errors.New("no enabled clickhouse writer in config")
	}
	loader, err := query.NewClickHouseLoader(*ch)
	if err != nil {
		return nil, err
	}
	defer loader.Close()

	fe, err := loader.LoadRun(ctx, f.RunID)
	if err != nil {
		return nil, err
	}
	res := model.NewResult(fe, time.Now().UTC())
	res.RunID = f.RunID
	return res, nil
}

func (f *reportFlags) print(out io.Writer, res *model.Result) error {
	if !f.JSON {
		return writer.RenderText(out, res)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(res), "failed to encode result")
}
