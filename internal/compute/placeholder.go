package compute

import (
	"context"
	"crypto/sha256"
	"errors"
)

// Domain prefixes for derived artifacts.
// Version suffix enables future algorithm migration.
const (
	DomainDensityMap = "ledgerflow/density-map/v1"
	DomainStructure  = "ledgerflow/structure/v1"
)

// Placeholder stands in for the confidential computation. It derives two
// artifacts, a density map and a structure blob, as domain-separated
// SHA-256 digests of the payload. Deterministic: the same payload always
// yields the same artifacts.
type Placeholder struct{}

// Run returns [density map, structure].
func (Placeholder) Run(ctx context.Context, payload []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Backend: "placeholder", Err: err}
	}
	if len(payload) == 0 {
		return Result{}, &Error{Backend: "placeholder", Err: errors.New("empty payload")}
	}
	return Result{Artifacts: [][]byte{
		hashWithDomain(DomainDensityMap, payload),
		hashWithDomain(DomainStructure, payload),
	}}, nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}
