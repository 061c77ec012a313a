package metadata

// AllocationRequestType is an enum that indicates how a free slot will be used to satisfy an
// allocation. It is returned in AllocationRequest from CreateAllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestExact indicates that a free slot of exactly the requested class size was found,
	// and it will be handed out as-is
	AllocationRequestExact AllocationRequestType = iota
	// AllocationRequestSplit indicates that the tightest larger free slot was found, and it will be split
	// into a used slot of the requested size and a free remainder slot
	AllocationRequestSplit
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestExact: "Exact",
	AllocationRequestSplit: "Split",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is a type returned from SlotTable.CreateAllocationRequest which indicates which slot
// the table intends to use for a new allocation. It can be committed with SlotTable.Alloc
type AllocationRequest struct {
	// SlotIndex is the index in the slot table of the free slot that was selected
	SlotIndex int
	// Offset is the offset of the selected slot, and the offset the allocation will start at
	Offset int
	// Size is the class size of the allocation
	Size int
	// SlotSize is the size of the selected free slot at the time the request was created
	SlotSize int
	// Type identifies whether the selected slot will be used as-is or split
	Type AllocationRequestType
}
