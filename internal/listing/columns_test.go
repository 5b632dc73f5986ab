package listing_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

func tenColumns() []listing.Column[currency] {
	cols := make([]listing.Column[currency], 10)
	for i := range cols {
		cols[i] = listing.Column[currency]{
			Key:      fmt.Sprintf("c%d", i),
			Header:   fmt.Sprintf("Column %d", i),
			Required: i == 0 || i == 5,
		}
	}
	return cols
}

func TestVisibility_InitialSet(t *testing.T) {
	v := listing.NewVisibility(currencyColumns())
	assert.Equal(t, []string{"code", "name", "rate", "active"}, v.Keys())
	assert.False(t, v.IsVisible("notes"))
}

func TestVisibility_HiddenRequiredColumnIsVisible(t *testing.T) {
	v := listing.NewVisibility([]listing.Column[currency]{
		{Key: "id", Required: true, Hidden: true},
		{Key: "memo", Hidden: true},
	})
	assert.Equal(t, []string{"id"}, v.Keys())
}

func TestVisibility_ToggleAll(t *testing.T) {
	v := listing.NewVisibility(tenColumns())
	require.True(t, v.AllVisible())

	v.ToggleAll()
	assert.Equal(t, []string{"c0", "c5"}, v.Keys())

	v.ToggleAll()
	assert.Len(t, v.Keys(), 10)
	assert.True(t, v.AllVisible())
}

func TestVisibility_ToggleAllFromPartialShowsAll(t *testing.T) {
	v := listing.NewVisibility(tenColumns())
	v.Toggle("c3")
	require.False(t, v.AllVisible())

	v.ToggleAll()
	assert.True(t, v.AllVisible())
}

func TestVisibility_RequiredColumnCannotBeHidden(t *testing.T) {
	states := map[string]func(v *listing.Visibility[currency]){
		"all visible":   func(*listing.Visibility[currency]) {},
		"only required": func(v *listing.Visibility[currency]) { v.ToggleAll() },
		"partly hidden": func(v *listing.Visibility[currency]) { v.Toggle("c2"); v.Toggle("c7") },
	}

	for name, setup := range states {
		t.Run(name, func(t *testing.T) {
			v := listing.NewVisibility(tenColumns())
			setup(v)
			before := v.Keys()

			assert.False(t, v.Toggle("c0"))
			assert.False(t, v.Toggle("c5"))
			assert.Equal(t, before, v.Keys())
		})
	}
}

func TestVisibility_ToggleKeepsDeclarationOrder(t *testing.T) {
	v := listing.NewVisibility(currencyColumns())
	v.Toggle("name")
	v.Toggle("notes")
	v.Toggle("name")

	assert.Equal(t, []string{"code", "name", "rate", "active", "notes"}, v.Keys())
	assert.False(t, v.Toggle("missing"))
}

func TestVisibility_Search(t *testing.T) {
	v := listing.NewVisibility(currencyColumns())

	got := v.Search("xrt")
	require.Len(t, got, 1)
	assert.Equal(t, "rate", got[0].Key)

	assert.Len(t, v.Search(""), 5)
	assert.Empty(t, v.Search("zzz"))
}

func TestColumn_CellFallsBackToValue(t *testing.T) {
	cols := currencyColumns()
	var b strings.Builder

	err := cols[3].Cell(currency{Active: true}).Render(context.Background(), &b)
	require.NoError(t, err)
	assert.Equal(t, "Yes", b.String())

	b.Reset()
	err = listing.Text("<b>").Render(context.Background(), &b)
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;", b.String())
}
