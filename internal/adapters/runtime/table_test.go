package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ember/internal/adapters/runtime"
	"go.trai.ch/ember/internal/core/domain"
)

func id(unit, symbol string) domain.PatchID {
	return domain.PatchID{Unit: domain.NewInternedString(unit), Symbol: symbol}
}

func TestTable_BindResolveUnbind(t *testing.T) {
	table := runtime.NewTable()
	greeter := id("greeter.swift", "greet")

	_, bound := table.Resolve(greeter)
	assert.False(t, bound)
	assert.True(t, table.CanBind(greeter))

	previous, existed := table.Bind(greeter, "impl-v1")
	assert.False(t, existed)
	assert.Nil(t, previous)

	impl, bound := table.Resolve(greeter)
	require.True(t, bound)
	assert.Equal(t, "impl-v1", impl)

	previous, existed = table.Bind(greeter, "impl-v2")
	assert.True(t, existed)
	assert.Equal(t, "impl-v1", previous)

	table.Unbind(greeter)
	_, bound = table.Resolve(greeter)
	assert.False(t, bound)
	assert.Equal(t, 0, table.Len())
}
