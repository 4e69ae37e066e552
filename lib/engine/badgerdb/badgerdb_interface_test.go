package badgerdb

import (
	"testing"

	enginetesting "github.com/cellardb/cellar/lib/engine/testing"
)

func Test(t *testing.T) {
	enginetesting.RunEngineTests(t, "BadgerDB", New)
}

func Benchmark(b *testing.B) {
	enginetesting.RunEngineBenchmarks(b, "BadgerDB", New)
}
