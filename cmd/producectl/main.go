// Command producectl runs produce ledger operations against a local ledger.
//
//	producectl [-org MSP] [-metrics] <operation> [args...]
//	producectl [-org MSP] export <assetId>
//	producectl ops
//
// Operation names and positional arguments match the chaincode transactions.
// Storage, blob export, org mapping and logging are read from PRODUCECHAIN_*
// environment variables.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"producechain/internal/blob"
	"producechain/internal/config"
	"producechain/internal/core"
	"producechain/internal/export"
	"producechain/internal/observability"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("producectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		org         string
		showMetrics bool
	)
	fs.StringVar(&org, "org", "", "caller MSP id (defaults to the originator org)")
	fs.BoolVar(&showMetrics, "metrics", false, "print operation counters to stderr")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "usage: producectl [-org MSP] [-metrics] <operation> [args...] | export <assetId> | ops")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if err := run(context.Background(), org, showMetrics, fs.Args(), stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "producectl: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, org string, showMetrics bool, args []string, stdout, stderr io.Writer) (err error) {
	if strings.EqualFold(args[0], "ops") {
		for _, name := range core.Operations() {
			if _, err := fmt.Fprintln(stdout, name); err != nil {
				return err
			}
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	orgs, err := cfg.Orgs.OrgTable()
	if err != nil {
		return err
	}
	if org == "" {
		org = cfg.Orgs.Originator
	}
	logger, err := observability.NewLogger(stderr, cfg.Log)
	if err != nil {
		return err
	}

	store, err := core.OpenPersistentStore(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close ledger: %w", cerr)
		}
	}()
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewPrometheusRecorder(reg)
	if err != nil {
		return err
	}
	tp, err := observability.NewTracerProvider(ctx, "producectl", logger)
	if err != nil {
		return err
	}
	defer func() {
		if serr := tp.Shutdown(ctx); serr != nil && err == nil {
			err = fmt.Errorf("shutdown tracing: %w", serr)
		}
	}()

	svc := core.NewService(store,
		core.WithOrgTable(orgs),
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(observability.NewOTelTracer(tp)),
		core.WithAuditRecorder(observability.NewAuditLogger(logger)),
		core.WithProvenanceExporter(export.New(blobs)),
	)

	var out []byte
	if strings.EqualFold(args[0], "export") {
		if len(args) != 2 {
			return errors.New("export takes exactly one asset id")
		}
		info, xerr := svc.ExportProvenance(ctx, org, args[1])
		if xerr != nil {
			return xerr
		}
		if out, err = json.Marshal(info); err != nil {
			return err
		}
	} else if out, err = svc.Invoke(ctx, org, args[0], args[1:]...); err != nil {
		return err
	}

	if err := writeJSON(stdout, out); err != nil {
		return err
	}
	if showMetrics {
		return writeCounters(stderr, reg)
	}
	return nil
}

func writeJSON(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func writeCounters(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			if _, err := fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), c.GetValue()); err != nil {
				return err
			}
		}
	}
	return nil
}
