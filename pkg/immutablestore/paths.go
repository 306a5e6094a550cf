package immutablestore

import (
	"fmt"
	"path/filepath"
)

// The functions in this file build the canonical day-keyed paths of the
// truth tree. They are pure string/path composition -- no I/O -- kept
// separate from Store so builders can compute a path before deciding
// whether to read or write it.

// CashLedgerSnapshotPath returns runtime/truth/cash_ledger_v1/snapshots/<day>/cash_ledger_snapshot.v1.json.
func CashLedgerSnapshotPath(root, day string) string {
	return filepath.Join(root, "cash_ledger_v1", "snapshots", day, "cash_ledger_snapshot.v1.json")
}

// PositionsSnapshotPath returns runtime/truth/positions_v1/snapshots/<day>/positions_snapshot.v<version>.json.
func PositionsSnapshotPath(root, day string, version int) string {
	return filepath.Join(root, "positions_v1", "snapshots", day, fmt.Sprintf("positions_snapshot.v%d.json", version))
}

// PositionsEffectivePointerPath returns runtime/truth/positions_v1/effective_v1/days/<day>/positions_effective_pointer.v1.json.
func PositionsEffectivePointerPath(root, day string) string {
	return filepath.Join(root, "positions_v1", "effective_v1", "days", day, "positions_effective_pointer.v1.json")
}

// PositionLifecycleSnapshotPath returns runtime/truth/position_lifecycle_v1/snapshots/<day>/position_lifecycle_snapshot.v1.json.
func PositionLifecycleSnapshotPath(root, day string) string {
	return filepath.Join(root, "position_lifecycle_v1", "snapshots", day, "position_lifecycle_snapshot.v1.json")
}

// DefinedRiskSnapshotPath returns runtime/truth/defined_risk_v1/snapshots/<day>/defined_risk_snapshot.v1.json.
func DefinedRiskSnapshotPath(root, day string) string {
	return filepath.Join(root, "defined_risk_v1", "snapshots", day, "defined_risk_snapshot.v1.json")
}

// AccountingArtifactPath returns runtime/truth/accounting_v1/<kind>/<day>/<file>.
// kind is one of "nav", "exposure", "attribution", "failures".
func AccountingArtifactPath(root, kind, day, file string) string {
	return filepath.Join(root, "accounting_v1", kind, day, file)
}

// ExecutionEvidenceSubmissionDir returns runtime/truth/execution_evidence_v1/submissions/<day>/<submission_id>/.
func ExecutionEvidenceSubmissionDir(root, day, submissionID string) string {
	return filepath.Join(root, "execution_evidence_v1", "submissions", day, submissionID)
}

// ExecutionEvidenceArtifactPath returns the path of a named artifact file
// inside a submission bundle directory (e.g. "order_plan.v1.json",
// "binding_record.v2.json", "veto_record.v1.json").
func ExecutionEvidenceArtifactPath(root, day, submissionID, filename string) string {
	return filepath.Join(ExecutionEvidenceSubmissionDir(root, day, submissionID), filename)
}

// AllocationArtifactPath returns runtime/truth/allocation_v1/<kind>/<day>/<file>.
// kind is one of "summary", "decisions", "failures".
func AllocationArtifactPath(root, kind, day, file string) string {
	return filepath.Join(root, "allocation_v1", kind, day, file)
}

// ReportPath returns runtime/truth/reports/<relativePath>.
func ReportPath(root, relativePath string) string {
	return filepath.Join(root, "reports", relativePath)
}
