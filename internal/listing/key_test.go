package listing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

func TestNewKey_DerivationIsIdempotent(t *testing.T) {
	filters := map[string]any{"search": "eu", "active": true, "region": 3}
	sort := listing.Sort{Column: "code", Direction: listing.Desc}

	a := listing.NewKey("currencies", 2, 25, filters, sort)
	b := listing.NewKey("currencies", 2, 25, map[string]any{"region": int64(3), "active": true, "search": "eu"}, sort)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, a, b)
}

func TestNewKey_Normalises(t *testing.T) {
	tests := []struct {
		name string
		key  listing.Key
		want string
	}{
		{
			name: "defaults",
			key:  listing.NewKey("vendors", 0, 0, nil, listing.Sort{}),
			want: "vendors:page=1&size=10&sort=none",
		},
		{
			name: "empty filters dropped",
			key:  listing.NewKey("vendors", 1, 10, map[string]any{"search": "", "status": nil}, listing.Sort{}),
			want: "vendors:page=1&size=10&sort=none",
		},
		{
			name: "direction defaults to asc",
			key:  listing.NewKey("vendors", 3, 50, nil, listing.Sort{Column: "name"}),
			want: "vendors:page=3&size=50&sort=name.asc",
		},
		{
			name: "direction ignored without column",
			key:  listing.NewKey("vendors", 1, 10, nil, listing.Sort{Direction: listing.Desc}),
			want: "vendors:page=1&size=10&sort=none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestKey_DistinctValuesNeverCollide(t *testing.T) {
	asString := listing.NewKey("accounts", 1, 10, map[string]any{"number": "1"}, listing.Sort{})
	asInt := listing.NewKey("accounts", 1, 10, map[string]any{"number": 1}, listing.Sort{})
	otherPage := listing.NewKey("accounts", 2, 10, map[string]any{"number": "1"}, listing.Sort{})

	assert.False(t, asString.Equal(asInt))
	assert.False(t, asString.Equal(otherPage))
	assert.True(t, asString.Equal(otherPage.WithPage(1)))
}

func TestKey_Matches(t *testing.T) {
	key := listing.NewKey("currencies", 1, 10, nil, listing.Sort{})
	assert.True(t, key.Matches("currencies"))
	assert.False(t, key.Matches("currencyStats"))
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, listing.Desc, listing.ParseDirection("DESC"))
	assert.Equal(t, listing.Desc, listing.ParseDirection(" desc "))
	assert.Equal(t, listing.Asc, listing.ParseDirection("asc"))
	assert.Equal(t, listing.Asc, listing.ParseDirection("sideways"))
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, listing.PageCount(0, 10))
	assert.Equal(t, 1, listing.PageCount(10, 10))
	assert.Equal(t, 2, listing.PageCount(11, 10))
	assert.Equal(t, 0, listing.PageCount(5, 0))
}

func TestPage_Validate(t *testing.T) {
	ok := listing.Page[int]{Items: []int{1, 2}, Total: 2}
	assert.NoError(t, ok.Validate(2))

	tooMany := listing.Page[int]{Items: []int{1, 2, 3}, Total: 3}
	assert.Error(t, tooMany.Validate(2))

	negative := listing.Page[int]{Total: -1}
	assert.Error(t, negative.Validate(10))
}
