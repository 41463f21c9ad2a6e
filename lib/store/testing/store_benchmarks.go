package testing

import (
	"fmt"
	"strings"
	"testing"
)

// RunStoreBenchmarks runs throughput benchmarks against the stores created by factory.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Get", func(b *testing.B) {
			s := factory(b)
			mustSet(b, s, "ro.bench.get", "value")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := s.Get("ro.bench.get"); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("GetLong", func(b *testing.B) {
			s := factory(b)
			mustSet(b, s, "ro.bench.long", strings.Repeat("l", 512))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := s.Get("ro.bench.long"); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("Update", func(b *testing.B) {
			s := factory(b)
			mustSet(b, s, "debug.bench.update", "0")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := s.Set("debug.bench.update", fmt.Sprint(i)); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("ParallelGet", func(b *testing.B) {
			s := factory(b)
			for i := 0; i < 64; i++ {
				mustSet(b, s, fmt.Sprintf("debug.bench.p%d", i), fmt.Sprint(i))
			}
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					if _, _, err := s.Get(fmt.Sprintf("debug.bench.p%d", i%64)); err != nil {
						b.Error(err)
						return
					}
					i++
				}
			})
		})
	})
}
