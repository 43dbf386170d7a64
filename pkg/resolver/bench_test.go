package resolver

import (
	"context"
	"math/rand"
	"strconv"
	"testing"
)

var BenchmarkCatalog = func() *Catalog {
	const (
		length      = 256
		seed        = 9
		nVersions   = 3
		pRequest    = .1
		pDependency = .15
		nDependency = 4
		pConflict   = .05
	)

	rnd := rand.New(rand.NewSource(seed))
	name := func(i int) string {
		return "p" + strconv.Itoa(i)
	}
	other := func(i int) string {
		y := i
		for y == i {
			y = rnd.Intn(length)
		}
		return name(y)
	}

	c := &Catalog{}
	for i := 0; i < length; i++ {
		p := Package{Name: name(i)}
		for v := rnd.Intn(nVersions) + 1; v > 0; v-- {
			version := Version{Version: strconv.Itoa(v) + ".0"}
			if rnd.Float64() < pDependency {
				for n := rnd.Intn(nDependency) + 1; n > 0; n-- {
					version.Requires = append(version.Requires, other(i))
				}
			}
			if rnd.Float64() < pConflict {
				version.Conflicts = append(version.Conflicts, other(i))
			}
			p.Versions = append(p.Versions, version)
		}
		c.Packages = append(c.Packages, p)
		if rnd.Float64() < pRequest {
			c.Requests = append(c.Requests, p.Name)
		}
	}
	if len(c.Requests) == 0 {
		c.Requests = []string{name(0)}
	}
	return c
}()

func BenchmarkResolve(b *testing.B) {
	r, err := NewResolver(BenchmarkCatalog)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Resolve(context.Background())
	}
}

func BenchmarkNewResolver(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = NewResolver(BenchmarkCatalog)
	}
}
