// Package shard implements the stateless work partitioning used to split one
// build across multiple independent invocations. Membership is a pure
// function of (index, total, current), so no coordination is needed between
// shard processes.
package shard

// Fixed slots for the four top-level build domains, interpreted modulo the
// configured shard total.
const (
	SlotCities = 0
	SlotCrypto = 1
	SlotStocks = 2
	SlotUsers  = 3

	// DomainSlots is the nominal width of the domain-level split.
	DomainSlots = 4
)

// Assign returns the shard responsible for the item at index.
func Assign(index, total int) int {
	if total <= 1 {
		return 0
	}
	return index % total
}

// ShouldBuild reports whether the shard identified by current owns the item
// at index. With a single shard every item is owned.
func ShouldBuild(index, total, current int) bool {
	if total <= 1 {
		return true
	}
	return Assign(index, total) == current
}
