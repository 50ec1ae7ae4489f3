package cluster

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultEnvironment is used when no environment is explicitly set.
	DefaultEnvironment = "production"

	// maxTokenLen is the maximum length of key/env/partition/instance tokens.
	maxTokenLen = 32
)

// generateInstanceID produces a 32-character lowercase hex instance
// identifier from a random UUID with the hyphens (and any other
// non-alphanumeric characters) stripped, reproducing cluster_create's
// uuid_generate/uuid_unparse_lower/isalnum loop.
func generateInstanceID() string {
	return stripNonAlnum(uuid.NewString())
}

// checkTokenLen enforces spec §3's "<=32 chars" bound on cluster_key,
// environment, partition, and instance_id tokens.
func checkTokenLen(field, value string) error {
	if len(value) > maxTokenLen {
		return fmt.Errorf("%s must be <= %d chars, got %d", field, maxTokenLen, len(value))
	}
	return nil
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// identity holds the immutable-once-joined identity fields from spec §3.
type identity struct {
	clusterKey string
	env        string
	partition  string
	instanceID string
}

func newIdentity(key string) *identity {
	return &identity{
		clusterKey: key,
		env:        DefaultEnvironment,
		instanceID: generateInstanceID(),
	}
}

// namespace returns the path-segment list used to scope this cluster's
// membership namespace: ⟨cluster_key⟩/⟨partition⟩?/⟨environment⟩ (spec §3).
func (id *identity) namespace() []string {
	if id.partition == "" {
		return []string{id.clusterKey, id.env}
	}
	return []string{id.clusterKey, id.partition, id.env}
}
