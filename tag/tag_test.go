package tag

import (
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineTag_Component(t *testing.T) {
	run := PipelineTag{RunID: "run-1", Pipeline: "words", Author: "alice"}

	ct := run.Component("c-1", "tokenize", FamilyStep)

	assert.Equal(t, "c-1", ct.UID)
	assert.Equal(t, run, ct.Pipeline)
	assert.Equal(t, "tokenize", ct.ID)
	assert.Equal(t, FamilyStep, ct.Family)
	assert.Equal(t, "words/run-1:step:tokenize", ct.String())
	assert.Equal(t, "words/run-1@alice", run.String())
}

func TestUUIDv7Generator_ValidAndSortable(t *testing.T) {
	gen := UUIDv7Generator{}

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		id := gen.Generate()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		ids = append(ids, id)
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, ids, sorted, "UUIDv7 ids should sort by creation order")
}

func TestFixedGenerator_Sequence(t *testing.T) {
	gen := NewFixedGenerator("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
