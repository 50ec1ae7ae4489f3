package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateInstanceID(t *testing.T) {
	id := generateInstanceID()
	assert.Len(t, id, 32)
	for _, r := range id {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		assert.True(t, isAlnum, "unexpected character %q in instance id", r)
	}
}

func TestGenerateInstanceIDUnique(t *testing.T) {
	assert.NotEqual(t, generateInstanceID(), generateInstanceID())
}

func TestStripNonAlnum(t *testing.T) {
	assert.Equal(t, "abc123", stripNonAlnum("ab-c1_2/3"))
}

func TestNamespaceWithoutPartition(t *testing.T) {
	id := newIdentity("widgets")
	id.env = "staging"
	assert.Equal(t, []string{"widgets", "staging"}, id.namespace())
}

func TestNamespaceWithPartition(t *testing.T) {
	id := newIdentity("widgets")
	id.env = "staging"
	id.partition = "east"
	assert.Equal(t, []string{"widgets", "east", "staging"}, id.namespace())
}

func TestCheckTokenLenRejectsOverLong(t *testing.T) {
	ok := make([]byte, maxTokenLen)
	for i := range ok {
		ok[i] = 'a'
	}
	assert.NoError(t, checkTokenLen("environment", string(ok)))

	tooLong := append(ok, 'a')
	assert.Error(t, checkTokenLen("environment", string(tooLong)))
}
