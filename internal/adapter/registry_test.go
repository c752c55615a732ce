package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegisteredTypes(t *testing.T) {
	for _, typ := range []string{"duckdb", "postgres"} {
		a, err := New(typ)
		require.NoError(t, err, "adapter %s should be registered", typ)
		assert.Equal(t, typ, a.Name())
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter type")
}

func TestRegistry_ConcurrentRegisterAndLookup(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			Register("loadtest", func() Adapter { return NewDuckDBAdapter() })
		}
	}()
	// The unknown-type error path lists registered names and must stay
	// safe against a concurrent Register.
	for i := 0; i < 100; i++ {
		_, err := New("missing")
		assert.Error(t, err)
	}
	<-done
}

func TestValidIdent(t *testing.T) {
	assert.NoError(t, validIdent("sales_2026"))
	assert.NoError(t, validIdent("_hidden"))
	assert.Error(t, validIdent("1sales"))
	assert.Error(t, validIdent("sales; DROP TABLE x"))
	assert.Error(t, validIdent(""))
	assert.Error(t, validIdent(`sales"`))
}
