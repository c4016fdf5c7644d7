package factor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moa/internal/domain"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.FactorInfo{Name: "AbuFactorBuyBreak", Kind: domain.FactorKindBuy})

	got, ok := r.Get("AbuFactorBuyBreak")
	require.True(t, ok, "Get returned false for registered factor")
	assert.Equal(t, domain.FactorKindBuy, got.Kind)
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.FactorInfo{Name: "beta", Kind: domain.FactorKindSell})
	r.Register(domain.FactorInfo{Name: "alpha", Kind: domain.FactorKindSell})
	r.Register(domain.FactorInfo{Name: "zeta", Kind: domain.FactorKindPick})

	assert.Equal(t, []string{"alpha", "beta"}, r.Names(domain.FactorKindSell))

	all := r.List("")
	require.Len(t, all, 3)
	// Pick factors sort ahead of sell factors.
	assert.Equal(t, "zeta", all[0].Name)
}

func TestBuiltin(t *testing.T) {
	r := Builtin()
	for _, kind := range domain.FactorKinds {
		assert.NotEmpty(t, r.List(kind), "no builtin %s factors", kind)
	}
	for _, name := range []string{"AbuPickStockNDay", "AbuFactorBuyBreak", "AbuFactorSellPreAtrN"} {
		_, ok := r.Get(name)
		assert.True(t, ok, "default factor %s missing from catalog", name)
	}
}
