package price

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stubToken = "0xtoken"
const stubReferenceToken = "0xref"

type stubProvider struct {
	name   string
	ratios map[string]decimal.Decimal
	err    error
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) GetPriceOfPairs(ctx context.Context, referenceToken string, tokens []string) (map[string]decimal.Decimal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ratios, nil
}

// TestRefreshStoresTheInverseRatio pins down review requirement: Updater.refresh
// must store 1/ratio (original_source's AvnuService::update calls
// ratio.inverse()), not the provider's raw token/referenceToken ratio.
func TestRefreshStoresTheInverseRatio(t *testing.T) {
	rawRatio := decimal.NewFromFloat(0.0004166)
	primary := stubProvider{name: "avnu", ratios: map[string]decimal.Decimal{stubToken: rawRatio}}

	store := NewStore()
	u := NewUpdater(store, primary, nil, stubReferenceToken, []string{stubToken}, 0, zerolog.Nop())
	u.refresh(context.Background())

	got, ok := store.Current().RatioOf(stubToken)
	require.True(t, ok)

	want := decimal.NewFromInt(1).Div(rawRatio)
	assert.True(t, got.Equal(want), "got %s, want %s", got, want)
}

func TestRefreshFallsBackWhenPrimaryFails(t *testing.T) {
	rawRatio := decimal.NewFromFloat(2)
	primary := stubProvider{name: "avnu", err: assert.AnError}
	fallback := stubProvider{name: "ekubo", ratios: map[string]decimal.Decimal{stubToken: rawRatio}}

	store := NewStore()
	u := NewUpdater(store, primary, fallback, stubReferenceToken, []string{stubToken}, 0, zerolog.Nop())
	u.refresh(context.Background())

	got, ok := store.Current().RatioOf(stubToken)
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(1).Div(rawRatio)))
}

func TestInvertRatiosSkipsZero(t *testing.T) {
	out := invertRatios(map[string]decimal.Decimal{stubToken: decimal.Zero})
	_, ok := out[stubToken]
	assert.False(t, ok)
}

func TestUsdRatioOfComputesUsdcOverToken(t *testing.T) {
	snap := &Snapshot{Ratios: map[string]decimal.Decimal{
		stubToken:    decimal.NewFromFloat(0.5),
		stubReferenceToken: decimal.NewFromFloat(1),
	}}
	got, ok := snap.UsdRatioOf(stubToken, stubReferenceToken)
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromFloat(2)))
}

func TestUsdRatioOfFalseWhenTokenMissing(t *testing.T) {
	snap := &Snapshot{Ratios: map[string]decimal.Decimal{}}
	_, ok := snap.UsdRatioOf(stubToken, stubReferenceToken)
	assert.False(t, ok)
}
