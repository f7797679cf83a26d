// Package command provides CLI command definitions for veildir.
package command

import (
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/veildir/veildir-go/internal/cli/output"
	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/internal/storage"
	"github.com/veildir/veildir-go/internal/storage/dircache"
)

// recordPrefixes maps the record type labels shown in status output to
// their key prefixes.
var recordPrefixes = []struct {
	label  string
	prefix string
}{
	{"consensus", "dir:consensus:"},
	{"authcert", "dir:authcert:"},
	{"microdesc", "dir:microdesc:"},
	{"routerdesc", "dir:routerdesc:"},
	{"bridge", "dir:bridge:"},
	{"state", "state:"},
}

type flavorStatus struct {
	Flavor     string `json:"flavor" yaml:"flavor"`
	ValidAfter string `json:"valid_after,omitempty" yaml:"valid_after,omitempty"`
	ValidUntil string `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`
}

type statusReport struct {
	Flavors []flavorStatus `json:"flavors" yaml:"flavors"`
	Records map[string]int `json:"records" yaml:"records"`
}

// StatusCommand reports what the cache currently holds.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show cached consensus freshness and record counts",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			backend, closeFn, err := openBackend(cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := buildStatus(backend, log)
			if err != nil {
				return err
			}

			if c.String("output") != "table" {
				return formatter(c).Format(c.App.Writer, report)
			}
			return renderStatusTable(c, report)
		},
	}
}

func buildStatus(backend storage.Backend, log *slog.Logger) (*statusReport, error) {
	store := dircache.NewKVStore(storage.DirView(backend), log)

	report := &statusReport{Records: make(map[string]int)}

	for _, flavor := range []domain.ConsensusFlavor{domain.FlavorMicrodesc, domain.FlavorPlain} {
		fs := flavorStatus{Flavor: string(flavor)}
		meta, err := store.LatestConsensusMeta(flavor)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			fs.ValidAfter = meta.Lifetime.ValidAfter.Format("2006-01-02 15:04:05 MST")
			fs.ValidUntil = meta.Lifetime.ValidUntil.Format("2006-01-02 15:04:05 MST")
		}
		report.Flavors = append(report.Flavors, fs)
	}

	for _, rp := range recordPrefixes {
		keys, err := backend.Keys(rp.prefix)
		if err != nil {
			return nil, err
		}
		report.Records[rp.label] = len(keys)
	}

	return report, nil
}

func renderStatusTable(c *cli.Context, report *statusReport) error {
	flavors := &output.Table{}
	flavors.SetHeaders("FLAVOR", "VALID_AFTER", "VALID_UNTIL")
	for _, fs := range report.Flavors {
		va, vu := fs.ValidAfter, fs.ValidUntil
		if va == "" {
			va, vu = "-", "-"
		}
		flavors.AddRow(fs.Flavor, va, vu)
	}
	if err := flavors.Render(c.App.Writer); err != nil {
		return err
	}

	counts := &output.Table{}
	counts.SetHeaders("RECORDS", "COUNT")
	for _, rp := range recordPrefixes {
		counts.AddRow(rp.label, strconv.Itoa(report.Records[rp.label]))
	}
	return counts.Render(c.App.Writer)
}
