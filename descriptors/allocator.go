package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"golang.org/x/exp/slog"
)

// MaxSetsPerPool caps the size of pools created as the allocator grows
const MaxSetsPerPool = 4092

const growthFactor = 1.5

// ErrPoolExhausted is returned when an allocation fails against a freshly obtained pool after the
// first pool already reported it was out of memory
var ErrPoolExhausted = errors.New("descriptor pool exhausted after retry")

// PoolSizeRatio is the number of descriptors of one type to reserve per set in each pool
type PoolSizeRatio struct {
	Type  core1_0.DescriptorType
	Ratio float32
}

// Stats is a snapshot of the allocator's pool lists
type Stats struct {
	ReadyPools   int
	FullPools    int
	PoolsCreated int
	NextPoolSize int
}

// Allocator hands out descriptor sets from a growing list of pools. Pools that run out of space
// are parked on a full list until ClearPools resets them; when no pool has space, a new one is
// created at 1.5x the size of the previous one, up to MaxSetsPerPool.
//
// Allocator is not safe for concurrent use. Each frame slot owns its own allocator.
type Allocator struct {
	logger *slog.Logger
	device core1_0.Device
	flags  core1_0.DescriptorPoolCreateFlags
	ratios []PoolSizeRatio

	setsPerPool  int
	poolsCreated int

	ready []core1_0.DescriptorPool
	full  []core1_0.DescriptorPool
}

func nextPoolSize(current int) int {
	next := int(float64(current) * growthFactor)
	if next > MaxSetsPerPool {
		return MaxSetsPerPool
	}
	return next
}

// NewAllocator records the pool size ratios and creates an initial pool holding maxSets sets,
// capped at MaxSetsPerPool. flags is passed to every pool this allocator creates.
func NewAllocator(logger *slog.Logger, device core1_0.Device, maxSets int, ratios []PoolSizeRatio, flags core1_0.DescriptorPoolCreateFlags) (*Allocator, error) {
	if maxSets <= 0 {
		return nil, errors.Newf("descriptor allocator needs a positive set count, got %d", maxSets)
	}
	if maxSets > MaxSetsPerPool {
		maxSets = MaxSetsPerPool
	}

	a := &Allocator{
		logger: logger,
		device: device,
		flags:  flags,
		ratios: append([]PoolSizeRatio(nil), ratios...),
	}

	pool, err := a.createPool(maxSets)
	if err != nil {
		return nil, err
	}

	a.setsPerPool = nextPoolSize(maxSets)
	a.ready = append(a.ready, pool)

	return a, nil
}

func (a *Allocator) createPool(setCount int) (core1_0.DescriptorPool, error) {
	poolSizes := make([]core1_0.DescriptorPoolSize, 0, len(a.ratios))
	for _, ratio := range a.ratios {
		// a zero descriptorCount is invalid usage
		count := int(ratio.Ratio * float32(setCount))
		if count < 1 {
			count = 1
		}

		poolSizes = append(poolSizes, core1_0.DescriptorPoolSize{
			Type:            ratio.Type,
			DescriptorCount: count,
		})
	}

	pool, _, err := a.device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		Flags:     a.flags,
		MaxSets:   setCount,
		PoolSizes: poolSizes,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create descriptor pool of %d sets", setCount)
	}

	a.poolsCreated++
	a.logger.Debug("Allocator::createPool", slog.Int("sets", setCount), slog.Int("poolsCreated", a.poolsCreated))

	return pool, nil
}

// getPool takes the most recently used ready pool, or creates one at the current growth target
func (a *Allocator) getPool() (core1_0.DescriptorPool, error) {
	if count := len(a.ready); count > 0 {
		pool := a.ready[count-1]
		a.ready = a.ready[:count-1]
		return pool, nil
	}

	pool, err := a.createPool(a.setsPerPool)
	if err != nil {
		return nil, err
	}
	a.setsPerPool = nextPoolSize(a.setsPerPool)

	return pool, nil
}

func poolIsFull(result common.VkResult) bool {
	return result == core1_1.VkErrorOutOfPoolMemory || result == core1_0.VKErrorFragmentedPool
}

// Allocate returns a descriptor set with the provided layout. If the pool it tries first is out of
// space, that pool is moved to the full list and the allocation is retried once against another
// pool. A second failure returns ErrPoolExhausted.
func (a *Allocator) Allocate(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, error) {
	pool, err := a.getPool()
	if err != nil {
		return nil, err
	}

	info := core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool,
		SetLayouts:     []core1_0.DescriptorSetLayout{layout},
	}

	sets, result, err := a.device.AllocateDescriptorSets(info)
	if poolIsFull(result) {
		a.full = append(a.full, pool)

		pool, err = a.getPool()
		if err != nil {
			return nil, err
		}

		info.DescriptorPool = pool
		sets, result, err = a.device.AllocateDescriptorSets(info)
		if poolIsFull(result) {
			a.full = append(a.full, pool)
			return nil, errors.Wrapf(ErrPoolExhausted, "allocate descriptor set: %v", err)
		}
	}

	// the pool may still have room, so it goes back on the ready list either way
	a.ready = append(a.ready, pool)

	if err != nil {
		return nil, errors.Wrap(err, "allocate descriptor set")
	}

	return sets[0], nil
}

// ClearPools resets every pool, releasing all sets allocated from them, and moves full pools back
// to the ready list
func (a *Allocator) ClearPools() error {
	var err error

	for _, pool := range a.ready {
		_, resetErr := pool.Reset(0)
		err = errors.CombineErrors(err, resetErr)
	}
	for _, pool := range a.full {
		_, resetErr := pool.Reset(0)
		err = errors.CombineErrors(err, resetErr)
		a.ready = append(a.ready, pool)
	}
	a.full = a.full[:0]

	return errors.Wrap(err, "reset descriptor pools")
}

// DestroyPools releases every pool. It must be called before the device is destroyed.
func (a *Allocator) DestroyPools() {
	for _, pool := range a.ready {
		pool.Destroy(nil)
	}
	a.ready = nil

	for _, pool := range a.full {
		pool.Destroy(nil)
	}
	a.full = nil
}

// Stats reports how many pools are ready, full, created in total, and the size of the next pool
func (a *Allocator) Stats() Stats {
	return Stats{
		ReadyPools:   len(a.ready),
		FullPools:    len(a.full),
		PoolsCreated: a.poolsCreated,
		NextPoolSize: a.setsPerPool,
	}
}
