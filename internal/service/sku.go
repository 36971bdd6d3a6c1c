package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// SKUAllocator hands out system-generated SKUs. Candidates are not assumed
// unique: the products.sku unique index is the arbiter, and CreateProduct
// re-allocates when an insert collides.
type SKUAllocator interface {
	Allocate() string
}

type skuAllocator struct {
	prefix  string
	counter atomic.Uint64
}

// NewSKUAllocator returns an allocator producing "<prefix>-<counter>-<random>".
// The counter keeps one process collision free; the random part separates
// instances that share a database.
func NewSKUAllocator(prefix string) SKUAllocator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "PROD"
	}
	return &skuAllocator{prefix: prefix}
}

func (a *skuAllocator) Allocate() string {
	n := a.counter.Add(1)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s",
		a.prefix,
		strings.ToUpper(strconv.FormatUint(n, 36)),
		strings.ToUpper(random),
	)
}

// IsGeneratedSKU reports whether sku has the shape produced by an allocator
// with the given prefix.
func IsGeneratedSKU(prefix, sku string) bool {
	parts := strings.Split(sku, "-")
	return len(parts) == 3 && parts[0] == strings.ToUpper(prefix) && parts[1] != "" && len(parts[2]) == 8
}
