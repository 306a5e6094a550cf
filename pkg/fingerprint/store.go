package fingerprint

import "fmt"

// Store records which (day_utc, stage) pairs have already produced a
// written artifact, so a polling supervisor can skip re-invoking a stage
// without re-deriving state from the truth tree on every tick.
//
// CONCURRENCY: like the ledger store it is grounded on, Store assumes a
// single writer -- the orchestration loop that runs stages in sequence
// for a day. Concurrent callers must serialize their own writes.
type Store struct {
	kv KV
}

// NewStore wraps any KV implementation as a fingerprint Store.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func markerKey(dayUTC, stage string) []byte {
	return []byte(fmt.Sprintf("fingerprint:%s:%s", dayUTC, stage))
}

// MarkProcessed records that stage has produced artifactHash for dayUTC.
func (s *Store) MarkProcessed(dayUTC, stage, artifactHash string) error {
	return s.kv.Set(markerKey(dayUTC, stage), []byte(artifactHash))
}

// Processed reports whether stage has already run for dayUTC, and the
// hash it recorded if so. A nil value (key absent) reports false.
func (s *Store) Processed(dayUTC, stage string) (hash string, done bool, err error) {
	v, err := s.kv.Get(markerKey(dayUTC, stage))
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return string(v), true, nil
}
