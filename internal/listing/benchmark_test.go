package listing_test

import (
	"fmt"
	"testing"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// BenchmarkKeyString benchmarks the canonical key form.
// Every cache read and write computes it.
func BenchmarkKeyString(b *testing.B) {
	filters := map[string]any{
		"search":  "acme",
		"country": "US",
		"active":  true,
		"minimum": 100,
	}
	key := listing.NewKey("vendors", 3, 25, filters, listing.Sort{Column: "name", Direction: listing.Desc})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = key.String()
	}
}

// BenchmarkMemoryStore_Get benchmarks a hit in a store holding many pages of
// several collections.
func BenchmarkMemoryStore_Get(b *testing.B) {
	store := listing.NewMemoryStore(listing.SystemClock)
	var keys []listing.Key
	for _, coll := range []string{"vendors", "accounts", "currencies"} {
		for page := 1; page <= 50; page++ {
			k := listing.NewKey(coll, page, 25, map[string]any{"search": fmt.Sprint(page)}, listing.Sort{})
			store.Set(listing.Entry{Key: k, Status: listing.StatusSuccess})
			keys = append(keys, k)
		}
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.String()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := store.Get(ids[i%len(ids)]); !ok {
			b.Fatal("missing entry")
		}
	}
}

// BenchmarkMemoryStore_Invalidate benchmarks marking one collection stale.
func BenchmarkMemoryStore_Invalidate(b *testing.B) {
	store := listing.NewMemoryStore(listing.SystemClock)
	for _, coll := range []string{"vendors", "accounts", "currencies"} {
		for page := 1; page <= 50; page++ {
			store.Set(listing.Entry{Key: listing.NewKey(coll, page, 25, nil, listing.Sort{}), Status: listing.StatusSuccess})
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Invalidate("vendors")
	}
}
