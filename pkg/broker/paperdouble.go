package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/constellation2/evidence-kernel/pkg/canonhash"
)

// PaperDouble is a deterministic in-memory Adapter used by tests and by
// offline paper-mode invocations. It never reaches a network; its
// "broker_submission_hash" is derived from the payload digest alone, so
// two runs against the same payload produce the same submission hash,
// matching the kernel's determinism properties.
type PaperDouble struct {
	mu        sync.Mutex
	connected bool
	submitted map[string]SubmitResult
}

// NewPaperDouble returns a fresh PaperDouble with no submissions recorded.
func NewPaperDouble() *PaperDouble {
	return &PaperDouble{submitted: make(map[string]SubmitResult)}
}

func (p *PaperDouble) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *PaperDouble) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *PaperDouble) WhatIf(ctx context.Context, brokerPayloadDigest string) (WhatIfResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return WhatIfResult{}, ErrAdapterNotAvailable
	}
	return WhatIfResult{MarginChangeUSD: "0.00", NotionalUSD: "0.00"}, nil
}

func (p *PaperDouble) Submit(ctx context.Context, brokerPayloadDigest string) (SubmitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return SubmitResult{}, ErrAdapterNotAvailable
	}

	hash := canonhash.SHA256Hex([]byte("PAPER_SUBMIT:" + brokerPayloadDigest))
	result := SubmitResult{
		BrokerSubmissionHash: hash,
		Status:               "ACKNOWLEDGED",
		Detail:               fmt.Sprintf("paper double acknowledged payload %s", brokerPayloadDigest),
	}
	p.submitted[hash] = result
	return result, nil
}

func (p *PaperDouble) Cancel(ctx context.Context, brokerSubmissionHash string) (CancelResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return CancelResult{}, ErrAdapterNotAvailable
	}
	if _, ok := p.submitted[brokerSubmissionHash]; !ok {
		return CancelResult{Status: "UNKNOWN", Detail: "no such submission"}, nil
	}
	return CancelResult{Status: "CANCELLED"}, nil
}
