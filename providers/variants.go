package providers

import (
	"sort"
	"strings"
	"sync"

	"wingo/models"
)

var (
	mu       sync.RWMutex
	variants = map[string]models.Variant{}
)

// Register makes a variant available by its code. Game packages call it
// from init.
func Register(v models.Variant) {
	mu.Lock()
	defer mu.Unlock()
	variants[strings.ToLower(v.Code)] = v
}

func Get(code string) (models.Variant, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := variants[strings.ToLower(code)]
	return v, ok
}

func All() []models.Variant {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]models.Variant, 0, len(variants))
	for _, v := range variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
