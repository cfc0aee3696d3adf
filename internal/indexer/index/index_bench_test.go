package index

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
)

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{100, 1000} {
		records := make([]*occupation.Record, n)
		for i := range records {
			items := make([]occupation.Item, 30)
			for j := range items {
				v := float64(j + 1)
				items[j] = occupation.Item{Name: fmt.Sprintf("Knowledge_%d", (i+j)%120), Importance: &v}
			}
			records[i] = &occupation.Record{Code: fmt.Sprintf("%05d", i), Knowledge: items}
		}
		store, err := occupation.NewStore(records)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Build(store, DefaultOptions())
			}
		})
	}
}
