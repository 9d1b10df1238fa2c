package synth

import (
	"fmt"
	"math/rand/v2"

	"github.com/smith-xyz/topobench/pkg/models"
)

var (
	verbs = []string{
		"Parse", "Load", "Validate", "Compute", "Render", "Encode", "Decode", "Merge",
		"Filter", "Fetch", "Store", "Resolve", "Normalize", "Schedule", "Publish", "Index",
	}
	nouns = []string{
		"Invoice", "Config", "Order", "Session", "Report", "Token", "Account", "Payload",
		"Record", "Ledger", "Profile", "Batch", "Route", "Metric", "Snapshot", "Catalog",
	}
)

// positionalName is the name used when semantics are disabled
func positionalName(kind models.NodeKind, id int) string {
	if kind == models.KindStruct {
		return fmt.Sprintf("Struct_%d", id)
	}
	return fmt.Sprintf("Function_%d", id)
}

// semanticNames draws n distinct Verb+Noun names. Past the vocabulary size
// a numeric generation suffix keeps names unique.
func semanticNames(n int, rng *rand.Rand) []string {
	size := len(verbs) * len(nouns)
	slots := rng.Perm(size)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		slot := slots[i%size]
		name := verbs[slot/len(nouns)] + nouns[slot%len(nouns)]
		if gen := i / size; gen > 0 {
			name = fmt.Sprintf("%s%d", name, gen+1)
		}
		names[i] = name
	}
	return names
}

// localNames hands out identifiers for generated locals. They all start with
// "v" so they never collide with keywords, node names or fixed locals.
type localNames struct {
	rng  *rand.Rand
	used map[string]bool
}

func newLocalNames(rng *rand.Rand) *localNames {
	return &localNames{rng: rng, used: make(map[string]bool)}
}

func (l *localNames) next() string {
	for {
		b := []byte{'v', 0, 0, 0, 0, 0}
		for i := 1; i < len(b); i++ {
			b[i] = byte('a' + l.rng.IntN(26))
		}
		name := string(b)
		if !l.used[name] {
			l.used[name] = true
			return name
		}
	}
}
