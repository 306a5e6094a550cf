// Copyright 2025 Constellation 2.0
//
// c2-kernel is the thin entrypoint binary: it loads configuration, wires
// the shared Kernel, and either serves the read-only status surface,
// dispatches a single day's stage to its matching builder, or reports
// its own version -- same "load config, delegate to a package" shape as
// the teacher's own cmd/ binaries. The stage dispatch is illustrative
// only: spec.md marks CLI entry points out of scope, so this command
// wires exactly enough of the definedrisk/accounting/reporting path to
// demonstrate the "read upstream JSON, call the builder, write the
// result once" shape every stage follows; it is not a full
// day-orchestration service. The one cross-stage read in the chain is
// runAccounting pulling the day's already-written defined_risk_snapshot
// back out of the truth tree, since accounting needs DefinedRisk
// attributed to an engine and the snapshot itself only ever knows
// positions, not engines.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/constellation2/evidence-kernel/pkg/builders/accounting"
	"github.com/constellation2/evidence-kernel/pkg/builders/definedrisk"
	"github.com/constellation2/evidence-kernel/pkg/builders/reporting"
	"github.com/constellation2/evidence-kernel/pkg/config"
	"github.com/constellation2/evidence-kernel/pkg/fingerprint"
	"github.com/constellation2/evidence-kernel/pkg/immutablestore"
	"github.com/constellation2/evidence-kernel/pkg/kernel"
	"github.com/constellation2/evidence-kernel/pkg/metrics"
	"github.com/constellation2/evidence-kernel/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// schemaEntries names every schema this kernel validates artifacts
// against, each resolved as <name>.schema.json under cfg.SchemaRoot.
var schemaEntries = map[string]string{
	"positions_snapshot.v5":          "positions_snapshot.v5.schema.json",
	"position_lifecycle_snapshot.v1": "position_lifecycle_snapshot.v1.schema.json",
	"defined_risk_snapshot.v1":       "defined_risk_snapshot.v1.schema.json",
	"accounting_nav.v1":              "accounting_nav.v1.schema.json",
	"accounting_exposure.v1":         "accounting_exposure.v1.schema.json",
	"accounting_attribution.v1":      "accounting_attribution.v1.schema.json",
	"allocation_decision.v1":         "allocation_decision.v1.schema.json",
	"allocation_summary.v1":          "allocation_summary.v1.schema.json",
	"exit_reconciliation_report.v1":  "exit_reconciliation_report.v1.schema.json",
	"daily_portfolio_summary.v1":     "daily_portfolio_summary.v1.schema.json",
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "definedrisk", "accounting", "reporting":
		runStage(os.Args[1], os.Args[2:])
	case "version":
		fmt.Println("c2-kernel (evidence kernel)")
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: c2-kernel <serve|definedrisk|accounting|reporting|version> [flags]")
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the kernel's YAML config file")
	_ = fs.Parse(args)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "serve: -config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(1)
	}

	k := kernel.New(cfg, schemaEntries, nil)
	_ = k // the running kernel is consulted by a stage dispatch, not by the HTTP status surface

	reg := prometheus.NewRegistry()
	if _, err := metrics.New(reg); err != nil {
		fmt.Fprintf(os.Stderr, "serve: failed to register metrics: %v\n", err)
		os.Exit(1)
	}

	var statusHandlers *server.StatusHandlers
	if cfg.FingerprintDB != "" {
		fpStore, err := fingerprint.NewGoLevelDBStore("c2_kernel_fingerprints", cfg.FingerprintDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "serve: failed to open fingerprint store: %v\n", err)
			os.Exit(1)
		}
		statusHandlers = server.NewStatusHandlers(fpStore)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", server.HandleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if statusHandlers != nil {
		mux.HandleFunc("/api/stage-status", statusHandlers.HandleStageStatus)
	}

	addr := cfg.MetricsAddr
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{Addr: addr, Handler: mux}
	fmt.Printf("c2-kernel: listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(1)
	}
}

// runStage dispatches <stage> <day_utc> [flags] to the matching builder:
// it reads the stage's already-assembled Input as JSON from -input, calls
// the builder, writes the resulting artifact(s) into the truth tree via
// WriteOnce, marks the fingerprint store, and records a metrics timer and
// outcome. Every other stage in this kernel follows the identical shape;
// this command wires three of them end to end as the illustration.
func runStage(stage string, args []string) {
	fs := flag.NewFlagSet(stage, flag.ExitOnError)
	configPath := fs.String("config", "", "path to the kernel's YAML config file")
	inputPath := fs.String("input", "", "path to the stage's JSON-encoded Input")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "%s: day_utc is required as the first positional argument\n", stage)
		os.Exit(2)
	}
	dayUTC := fs.Arg(0)

	if *configPath == "" || *inputPath == "" {
		fmt.Fprintf(os.Stderr, "%s: -config and -input are required\n", stage)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
		os.Exit(1)
	}
	k := kernel.New(cfg, schemaEntries, nil)

	reg := prometheus.NewRegistry()
	metricsReg, err := metrics.New(reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to register metrics: %v\n", stage, err)
		os.Exit(1)
	}
	stopTimer := metricsReg.Timer(stage)
	defer stopTimer()

	var fpStore *fingerprint.Store
	if cfg.FingerprintDB != "" {
		fpStore, err = fingerprint.NewGoLevelDBStore("c2_kernel_fingerprints", cfg.FingerprintDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: failed to open fingerprint store: %v\n", stage, err)
			os.Exit(1)
		}
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to read -input: %v\n", stage, err)
		os.Exit(1)
	}

	var writes map[string][]byte
	var reasonCode string

	switch stage {
	case "definedrisk":
		writes, reasonCode, err = runDefinedRisk(raw, k)
	case "accounting":
		writes, reasonCode, err = runAccounting(raw, k)
	case "reporting":
		writes, reasonCode, err = runReporting(raw, k)
	}

	if err != nil {
		metricsReg.RecordInvocation(stage, metrics.OutcomeFail, reasonCode)
		fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
		os.Exit(1)
	}

	lastHash := ""
	for path, data := range writes {
		if _, err := k.Store.WriteOnce(path, data); err != nil {
			metricsReg.RecordInvocation(stage, metrics.OutcomeFail, reasonCode)
			fmt.Fprintf(os.Stderr, "%s: failed to write %s: %v\n", stage, path, err)
			os.Exit(1)
		}
		var written struct {
			Hash string `json:"canonical_json_hash"`
		}
		if err := json.Unmarshal(data, &written); err == nil {
			lastHash = written.Hash
		}
	}

	if fpStore != nil {
		if err := fpStore.MarkProcessed(dayUTC, stage, lastHash); err != nil {
			fmt.Fprintf(os.Stderr, "%s: failed to record fingerprint: %v\n", stage, err)
			os.Exit(1)
		}
	}

	metricsReg.RecordInvocation(stage, metrics.OutcomeOK, "")
	fmt.Printf("%s: wrote %d artifact(s) for %s\n", stage, len(writes), dayUTC)
}

// runDefinedRisk builds a day's defined_risk_snapshot.v1 from the
// order_plan evidence the caller has already gathered for each position
// (one JSON Input row per position, the way every other stage here takes
// its upstream evidence pre-assembled rather than reaching into the
// truth tree itself).
func runDefinedRisk(raw []byte, k *kernel.Kernel) (map[string][]byte, string, error) {
	var in definedrisk.Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, "", fmt.Errorf("invalid definedrisk input: %w", err)
	}
	if in.ProducedAtUTC == "" {
		in.ProducedAtUTC = k.Now()
	}

	res, stageErr := definedrisk.BuildSnapshot(in, k.Schemas)
	if stageErr != nil {
		return nil, string(stageErr.Reason), stageErr
	}

	data, err := json.Marshal(res.Object)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal defined_risk_snapshot: %w", err)
	}
	path := immutablestore.DefinedRiskSnapshotPath(k.Store.Root(), in.DayUTC)
	return map[string][]byte{path: data}, "", nil
}

// definedRiskSnapshotFile is the slice of a defined_risk_snapshot.v1
// artifact runAccounting needs back out, once the definedrisk stage has
// written one for the day.
type definedRiskSnapshotFile struct {
	DefinedRisk struct {
		Items []struct {
			PositionID         string `json:"position_id"`
			Underlying         string `json:"underlying"`
			ExpiryUTC          string `json:"expiry_utc"`
			MarketExposureType string `json:"market_exposure_type"`
			MaxLossCents       *int64 `json:"max_loss_cents"`
		} `json:"items"`
	} `json:"defined_risk"`
}

// loadDefinedRisk reads the day's defined_risk_snapshot.v1 artifact, if
// one has been written yet, and joins its rows against positions (by
// position_id) to attribute each to the engine that opened the position
// -- the snapshot itself never carries an engine_id, only accounting's
// own lineage does. A day with no snapshot yet (definedrisk hasn't run)
// is not an error: it returns no rows, same as an empty input always
// has, rather than failing the accounting stage closed.
func loadDefinedRisk(root, day string, positions []accounting.PositionAttributionRow) ([]accounting.DefinedRiskItem, error) {
	raw, err := os.ReadFile(immutablestore.DefinedRiskSnapshotPath(root, day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read defined_risk_snapshot: %w", err)
	}

	var snapshot definedRiskSnapshotFile
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("invalid defined_risk_snapshot: %w", err)
	}

	engineByPosition := make(map[string]string, len(positions))
	for _, p := range positions {
		engineByPosition[p.PositionID] = p.EngineID
	}

	items := make([]accounting.DefinedRiskItem, 0, len(snapshot.DefinedRisk.Items))
	for _, it := range snapshot.DefinedRisk.Items {
		if it.MaxLossCents == nil {
			continue
		}
		items = append(items, accounting.DefinedRiskItem{
			EngineID:     engineByPosition[it.PositionID],
			Underlying:   it.Underlying,
			ExpiryUTC:    it.ExpiryUTC,
			MaxLossCents: *it.MaxLossCents,
			ExposureType: it.MarketExposureType,
		})
	}
	return items, nil
}

func runAccounting(raw []byte, k *kernel.Kernel) (map[string][]byte, string, error) {
	var in accounting.Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, "", fmt.Errorf("invalid accounting input: %w", err)
	}
	if in.ProducedAtUTC == "" {
		in.ProducedAtUTC = k.Now()
	}
	if len(in.DefinedRisk) == 0 {
		definedRisk, err := loadDefinedRisk(k.Store.Root(), in.DayUTC, in.Positions)
		if err != nil {
			return nil, "", err
		}
		in.DefinedRisk = definedRisk
	}

	nav, stageErr := accounting.BuildNAV(in, k.Schemas)
	if stageErr != nil {
		return nil, string(stageErr.Reason), stageErr
	}
	exposure, stageErr := accounting.BuildExposure(in, k.Schemas)
	if stageErr != nil {
		return nil, string(stageErr.Reason), stageErr
	}
	attribution, stageErr := accounting.BuildAttribution(in, k.Schemas)
	if stageErr != nil {
		return nil, string(stageErr.Reason), stageErr
	}

	writes := map[string][]byte{}
	for kind, obj := range map[string]map[string]any{
		"nav":         nav.Object,
		"exposure":    exposure.Object,
		"attribution": attribution.Object,
	} {
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal %s: %w", kind, err)
		}
		path := immutablestore.AccountingArtifactPath(k.Store.Root(), kind, in.DayUTC, fmt.Sprintf("accounting_%s.v1.json", kind))
		writes[path] = data
	}
	return writes, "", nil
}

func runReporting(raw []byte, k *kernel.Kernel) (map[string][]byte, string, error) {
	var in reporting.Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, "", fmt.Errorf("invalid reporting input: %w", err)
	}
	if in.ProducedAtUTC == "" {
		in.ProducedAtUTC = k.Now()
	}

	res, stageErr := reporting.BuildSummary(in, k.Schemas)
	if stageErr != nil {
		return nil, string(stageErr.Reason), stageErr
	}

	data, err := json.Marshal(res.Object)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal daily_portfolio_summary: %w", err)
	}
	path := immutablestore.ReportPath(k.Store.Root(), fmt.Sprintf("%s/daily_portfolio_summary.v1.json", in.DayUTC))
	return map[string][]byte{path: data}, "", nil
}
