package cart

import (
	"context"
	"fmt"
	"testing"

	"stockflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decrementCall struct {
	ID  string
	Qty int
}

// fakeDecrementer records decrements and fails for configured ids.
type fakeDecrementer struct {
	calls   []decrementCall
	failFor map[string]error
}

func (f *fakeDecrementer) DecrementStock(ctx context.Context, id string, qty int) error {
	f.calls = append(f.calls, decrementCall{ID: id, Qty: qty})
	if err, ok := f.failFor[id]; ok {
		return err
	}
	return nil
}

func product(id string, stock int, mrp int64) models.Product {
	return models.Product{
		ID:      id,
		Barcode: id,
		Name:    "product " + id,
		MRP:     mrp,
		Stock:   stock,
	}
}

func TestAddMergesByProductID(t *testing.T) {
	c := New()
	p := product("A", 10, 100)

	require.NoError(t, c.Add(p, 2, 0))
	require.NoError(t, c.Add(p, 3, 0))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, int64(100), lines[0].SalePrice)
}

func TestAddRejectsInsufficientStock(t *testing.T) {
	c := New()
	p := product("A", 5, 100)

	err := c.Add(p, 6, 0)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Total())
}

func TestAddMergeRejectionLeavesCartUnchanged(t *testing.T) {
	c := New()
	p := product("A", 10, 100)

	require.NoError(t, c.Add(p, 3, 0))
	before := c.Lines()

	err := c.Add(p, 8, 0)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, before, c.Lines())
	assert.Equal(t, int64(300), c.Total())
}

func TestAddRejectsInvalidQuantity(t *testing.T) {
	c := New()
	p := product("A", 10, 100)

	assert.ErrorIs(t, c.Add(p, 0, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(p, -2, 0), ErrInvalidQuantity)
	assert.Equal(t, 0, c.Len())
}

func TestFirstAddPriceWins(t *testing.T) {
	c := New()
	p := product("A", 10, 100)

	require.NoError(t, c.Add(p, 1, 80))
	require.NoError(t, c.Add(p, 1, 95))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(80), lines[0].SalePrice)
	assert.Equal(t, int64(160), c.Total())
}

func TestSalePriceDefaultsToMRP(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(product("A", 10, 250), 2, 0))
	assert.Equal(t, int64(500), c.Total())
}

func TestTotalOverAddsAndRemoves(t *testing.T) {
	c := New()
	assert.Equal(t, int64(0), c.Total())

	require.NoError(t, c.Add(product("A", 10, 100), 2, 0))
	require.NoError(t, c.Add(product("B", 10, 50), 3, 40))
	assert.Equal(t, int64(2*100+3*40), c.Total())

	c.RemoveLine("A")
	assert.Equal(t, int64(120), c.Total())

	c.RemoveLine("A") // absent, no-op
	assert.Equal(t, int64(120), c.Total())
	assert.Equal(t, 1, c.Len())
}

func TestLinesPreserveInsertionOrder(t *testing.T) {
	c := New()
	for _, id := range []string{"C", "A", "B"} {
		require.NoError(t, c.Add(product(id, 10, 10), 1, 0))
	}

	lines := c.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "C", lines[0].Product.ID)
	assert.Equal(t, "A", lines[1].Product.ID)
	assert.Equal(t, "B", lines[2].Product.ID)
}

func TestCommitEmptyCart(t *testing.T) {
	c := New()
	dec := &fakeDecrementer{}

	receipt, err := c.Commit(context.Background(), dec)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, receipt)
	assert.Empty(t, dec.calls)
}

func TestCommitDecrementsAndClears(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(product("A", 10, 100), 3, 0))
	require.NoError(t, c.Add(product("B", 4, 200), 2, 150))

	dec := &fakeDecrementer{}
	receipt, err := c.Commit(context.Background(), dec)
	require.NoError(t, err)

	assert.Equal(t, int64(3*100+2*150), receipt.Total)
	assert.NotEmpty(t, receipt.ID)
	require.Len(t, receipt.Outcomes, 2)
	assert.True(t, receipt.Outcomes[0].Applied)
	assert.True(t, receipt.Outcomes[1].Applied)

	require.Len(t, dec.calls, 2)
	assert.Equal(t, decrementCall{ID: "A", Qty: 3}, dec.calls[0])
	assert.Equal(t, decrementCall{ID: "B", Qty: 2}, dec.calls[1])

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Total())
}

func TestCommitClearsCartOnPartialFailure(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(product("A", 10, 100), 3, 0))
	require.NoError(t, c.Add(product("B", 4, 200), 2, 0))

	dec := &fakeDecrementer{failFor: map[string]error{"B": fmt.Errorf("store unreachable")}}
	receipt, err := c.Commit(context.Background(), dec)
	require.NoError(t, err)

	require.Len(t, receipt.Outcomes, 2)
	assert.True(t, receipt.Outcomes[0].Applied)
	assert.False(t, receipt.Outcomes[1].Applied)
	assert.Equal(t, "store unreachable", receipt.Outcomes[1].Error)
	assert.Equal(t, int64(3*100+2*200), receipt.Total)

	// commit always empties the cart, even on partial failure
	assert.Equal(t, 0, c.Len())
}

// The worked example: stock 10, threshold 5, MRP 100.
func TestSaleScenario(t *testing.T) {
	c := New()
	a := product("A", 10, 100)

	require.NoError(t, c.Add(a, 3, 0))
	assert.Equal(t, int64(300), c.Total())

	err := c.Add(a, 8, 0)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, 3, c.Lines()[0].Quantity)

	require.NoError(t, c.Add(a, 7, 0))
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, 10, c.Lines()[0].Quantity)
	assert.Equal(t, int64(1000), c.Total())

	dec := &fakeDecrementer{}
	receipt, err := c.Commit(context.Background(), dec)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), receipt.Total)
	require.Len(t, dec.calls, 1)
	assert.Equal(t, decrementCall{ID: "A", Qty: 10}, dec.calls[0])
	assert.Equal(t, 0, c.Len())
}
