package data

// LastBlocks checkpoints the highest handled block per chain so the watchers
// resume without skipping or replaying events.
type LastBlocks interface {
	Set(chain string, n uint64) error
	Get(chain string) (*uint64, error)
}
