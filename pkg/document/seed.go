package document

import (
	_ "embed"
	"fmt"
	"sync"
)

//go:embed seed.json
var seedJSON []byte

var (
	seedOnce sync.Once
	seedDoc  *Document
)

// Seed returns a fresh copy of the default document shipped with the binary.
// Callers may mutate the result freely.
func Seed() *Document {
	seedOnce.Do(func() {
		d, err := Parse(seedJSON)
		if err != nil {
			panic(fmt.Sprintf("document: embedded seed is invalid: %v", err))
		}
		seedDoc = d
	})
	return seedDoc.Clone()
}

// SeedBytes returns the seed in its on-disk encoding.
func SeedBytes() []byte {
	b, err := Seed().Bytes()
	if err != nil {
		panic(fmt.Sprintf("document: encode seed: %v", err))
	}
	return b
}
