package ephemeral

import (
	"testing"

	enginetesting "github.com/cellardb/cellar/lib/engine/testing"
)

func Test(t *testing.T) {
	enginetesting.RunEngineTests(t, "Ephemeral", New)
}

func Benchmark(b *testing.B) {
	enginetesting.RunEngineBenchmarks(b, "Ephemeral", New)
}
