package failclosed

import (
	"log"
	"path/filepath"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/immutablestore"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// ExitCode mirrors the kernel's process exit code contract: 0 success,
// 1/2 veto written (mapping vs. submit boundary), 3 broker rejected
// (submission record only, handled by the submit builder directly), 4
// hard fail.
type ExitCode int

const (
	ExitSuccess        ExitCode = 0
	ExitVetoMapping    ExitCode = 1
	ExitVetoSubmit     ExitCode = 2
	ExitBrokerRejected ExitCode = 3
	ExitHardFail       ExitCode = 4
)

// Controller is the FailClosedController: it converts a *StageError into
// a schema-valid VetoRecord or FailureRecord, writes it through the
// immutable store, and reports the process exit code the caller should
// use. It never writes a partial bundle -- EnsureOutDirReady runs first,
// uniformly, for every artifact kind including vetoes.
type Controller struct {
	Store    *immutablestore.Store
	Schemas  *schemagate.Registry
	Producer map[string]string
	logger   *log.Logger
}

// New builds a Controller. schemas may be nil to skip schema validation
// of the record being written (used in tests where no schema tree is
// mounted); production wiring always supplies a registry.
func New(store *immutablestore.Store, schemas *schemagate.Registry, producer map[string]string) *Controller {
	return &Controller{
		Store:    store,
		Schemas:  schemas,
		Producer: producer,
		logger:   log.New(log.Writer(), "[FailClosedController] ", log.LstdFlags),
	}
}

// WriteVeto builds and writes a veto_record.v1 artifact into outDir and
// returns the exit code the caller's process should terminate with.
func (c *Controller) WriteVeto(outDir, nowUTC string, stageErr *StageError, inputs VetoInputs, pointers []string, upstreamHash string) (ExitCode, error) {
	if err := c.Store.EnsureOutDirReady(outDir); err != nil {
		return ExitHardFail, err
	}

	obj, digest := BuildVetoRecord(nowUTC, stageErr, inputs, pointers, upstreamHash, c.Producer)

	if c.Schemas != nil {
		if err := c.Schemas.Validate("veto_record.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return ExitHardFail, err
		}
	}

	body := append(canonhash.CanonicalBytes(canonhash.Obj(obj)), '\n')
	path := filepath.Join(outDir, "veto_record.v1.json")
	if _, err := c.Store.WriteOnce(path, body); err != nil {
		return ExitHardFail, err
	}

	c.logger.Printf("FAIL: %s: %s (canonical_json_hash=%s)", stageErr.Reason, stageErr.Detail, digest)

	if stageErr.Boundary == BoundaryMapping {
		return ExitVetoMapping, nil
	}
	return ExitVetoSubmit, nil
}

// WriteFailure builds and writes a failure_record.v1 artifact for stages
// with no broker boundary (everything downstream of submission).
func (c *Controller) WriteFailure(outDir, nowUTC string, stageErr *StageError, pointers []string) (ExitCode, error) {
	if err := c.Store.EnsureOutDirReady(outDir); err != nil {
		return ExitHardFail, err
	}

	obj, digest := BuildFailureRecord(nowUTC, stageErr, pointers, c.Producer)

	if c.Schemas != nil {
		if err := c.Schemas.Validate("failure_record.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return ExitHardFail, err
		}
	}

	body := append(canonhash.CanonicalBytes(canonhash.Obj(obj)), '\n')
	path := filepath.Join(outDir, "failure_record.v1.json")
	if _, err := c.Store.WriteOnce(path, body); err != nil {
		return ExitHardFail, err
	}

	c.logger.Printf("FAIL: %s: %s (canonical_json_hash=%s)", stageErr.Reason, stageErr.Detail, digest)
	return ExitHardFail, nil
}

// StatusLine renders the kernel's single user-visible status line:
// "OK: <STAGE>_WRITTEN" or "FAIL: <REASON_CODE>: <detail>".
func StatusLine(ok bool, stage string, reason, detail string) string {
	if ok {
		return "OK: " + stage + "_WRITTEN"
	}
	return "FAIL: " + reason + ": " + detail
}
