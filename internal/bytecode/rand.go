package bytecode

import "math/rand"

// exprRand backs the expr-level rand/srand functions. It is
// deliberately package-level rather than per-Interp: a bare expr
// {rand} call has no Interp-scoped seed state to draw on, only
// whatever srand was last called with in the process. Only the
// expr-level srand function reseeds it.
var exprRand = rand.New(rand.NewSource(1))

func seedRand(seed int64) {
	exprRand = rand.New(rand.NewSource(seed))
}

func deterministicRand() float64 {
	return exprRand.Float64()
}
