package mapper

import (
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/reasoncode"
)

func vetoFreshness(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryMapping, reasoncode.FreshnessCertInvalidOrExpired, detail, cause)
}

func vetoPriceDeterminism(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryMapping, reasoncode.PriceDeterminismFailed, detail, cause)
}

func vetoDefinedRisk(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryMapping, reasoncode.DefinedRiskRequired, detail, cause)
}

func vetoExitPolicy(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryMapping, reasoncode.ExitPolicyRequired, detail, cause)
}

func vetoDeterminism(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryMapping, reasoncode.NondeterministicSelectionRule, detail, cause)
}

func vetoFailClosedRequired(detail string, cause error) *failclosed.StageError {
	return failclosed.New(failclosed.BoundaryMapping, reasoncode.MappingFailClosedRequired, detail, cause)
}
