package accounting

import (
	"github.com/constellation2/evidence-kernel/pkg/canonhash"
	"github.com/constellation2/evidence-kernel/pkg/failclosed"
	"github.com/constellation2/evidence-kernel/pkg/schemagate"
)

// BuildExposure assembles accounting_exposure.v1 for a day by summing
// max_loss_cents of every DEFINED_RISK row, grouped by underlying and by
// expiry month bucket. In.DefinedRisk is populated from the day's
// defined_risk_snapshot (see definedrisk.BuildSnapshot); a day can
// legitimately carry zero DEFINED_RISK rows either because no positions
// were opened yet or because the snapshot hasn't been produced for the
// day -- either way that is not an error, just flagged with a reason
// code rather than failed closed. registry may be nil to skip schema
// validation.
func BuildExposure(in Input, registry *schemagate.Registry) (ExposureResult, *failclosed.StageError) {
	if stageErr := requireDay(in); stageErr != nil {
		return ExposureResult{}, stageErr
	}

	byUnderlying := map[string]int64{}
	byExpiryBucket := map[string]int64{}
	var totalCents int64
	anyDefinedRisk := false

	for _, dr := range in.DefinedRisk {
		if dr.ExposureType != "DEFINED_RISK" {
			continue
		}
		anyDefinedRisk = true
		totalCents += dr.MaxLossCents

		underlying := dr.Underlying
		if underlying == "" {
			underlying = "unknown"
		}
		byUnderlying[underlying] += dr.MaxLossCents

		bucket := expiryBucket(dr.ExpiryUTC)
		byExpiryBucket[bucket] += dr.MaxLossCents
	}

	totalDollars, err := centsToDollarString(totalCents, "total_defined_risk_exposure_cents")
	if err != nil {
		return ExposureResult{}, fail("total defined-risk exposure is not convertible to whole dollars", err)
	}

	underlyingRows := make([]canonhash.Value, 0, len(byUnderlying))
	for _, k := range sortedKeys(byUnderlying) {
		dollars, err := centsToDollarString(byUnderlying[k], "by_underlying["+k+"]")
		if err != nil {
			return ExposureResult{}, fail("defined-risk exposure for underlying "+k+" is not convertible to whole dollars", err)
		}
		underlyingRows = append(underlyingRows, canonhash.Obj(map[string]canonhash.Value{
			"underlying":   canonhash.Str(k),
			"defined_risk":  canonhash.Str(dollars),
		}))
	}

	bucketRows := make([]canonhash.Value, 0, len(byExpiryBucket))
	for _, k := range sortedKeys(byExpiryBucket) {
		dollars, err := centsToDollarString(byExpiryBucket[k], "by_expiry_bucket["+k+"]")
		if err != nil {
			return ExposureResult{}, fail("defined-risk exposure for expiry bucket "+k+" is not convertible to whole dollars", err)
		}
		bucketRows = append(bucketRows, canonhash.Obj(map[string]canonhash.Value{
			"expiry_bucket": canonhash.Str(k),
			"defined_risk":  canonhash.Str(dollars),
		}))
	}

	status := StatusOK
	reasonCodes := []canonhash.Value{}
	if !anyDefinedRisk {
		reasonCodes = append(reasonCodes, canonhash.Str("EXPOSURE_BOOTSTRAP_DEFINED_RISK_UNKNOWN"))
	}

	obj := map[string]canonhash.Value{
		"schema_id":      canonhash.Str("accounting_exposure.v1"),
		"schema_version": canonhash.Str("1"),
		"day_utc":        canonhash.Str(in.DayUTC),
		"produced_utc":   canonhash.Str(in.ProducedAtUTC),
		"status":         canonhash.Str(status),
		"reason_codes":   canonhash.Arr(reasonCodes...),
		"exposure": canonhash.Obj(map[string]canonhash.Value{
			"total_defined_risk": canonhash.Str(totalDollars),
			"by_underlying":      canonhash.Arr(underlyingRows...),
			"by_expiry_bucket":   canonhash.Arr(bucketRows...),
		}),
		canonhash.SelfHashField: canonhash.Null(),
	}
	obj, hash := canonhash.InjectSelfHash(obj, canonhash.SelfHashField)

	if registry != nil {
		if err := registry.Validate("accounting_exposure.v1", canonhash.ToAny(canonhash.Obj(obj))); err != nil {
			return ExposureResult{}, fail("accounting_exposure failed schema validation", err)
		}
	}

	return ExposureResult{
		Object: canonhash.ToAny(canonhash.Obj(obj)).(map[string]any),
		Hash:   hash,
		Status: status,
	}, nil
}

// expiryBucket reduces an expiry timestamp to its YYYY-MM prefix, falling
// back to "unknown" for anything shorter than that.
func expiryBucket(expiryUTC string) string {
	if len(expiryUTC) < 7 || expiryUTC[4] != '-' {
		return "unknown"
	}
	return expiryUTC[:7]
}
