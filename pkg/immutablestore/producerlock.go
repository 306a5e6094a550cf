package immutablestore

import (
	"encoding/json"
	"os"
)

// producerEnvelope is the minimal shape every truth artifact carries for
// locking purposes: a producer descriptor with a git_sha field.
type producerEnvelope struct {
	Producer struct {
		GitSHA string `json:"git_sha"`
	} `json:"producer"`
}

// CheckProducerLock enforces the per-day producer-sha lock: if an
// artifact already exists at anchorPath, its embedded producer.git_sha is
// authoritative, and a different invoker attempting to write that day
// under a different git sha is refused. An absent anchorPath is not a
// lock violation -- it means no one has written this day yet.
func CheckProducerLock(anchorPath string, incomingGitSHA string) error {
	data, err := os.ReadFile(anchorPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return newErr(CodeWriteFailed, anchorPath, "unable to read existing day anchor artifact", err)
	}

	var env producerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return newErr(CodeWriteFailed, anchorPath, "existing day anchor artifact is not valid JSON", err)
	}

	if env.Producer.GitSHA == "" {
		return nil
	}
	if env.Producer.GitSHA != incomingGitSHA {
		return newErr(CodeProducerGitSHAMismatch, anchorPath,
			"existing day artifact was produced by a different git sha ("+env.Producer.GitSHA+" != "+incomingGitSHA+")", nil)
	}
	return nil
}
