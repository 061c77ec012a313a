package metadata

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/shmarena/memutils"
	"golang.org/x/exp/slog"
)

const (
	// DefaultCapacity is the number of slot descriptors reserved in the arena header when the
	// consumer does not ask for a specific capacity
	DefaultCapacity = 512
	// DataAlignment is the alignment of the first byte of the data region, relative to the start
	// of the bound region
	DataAlignment uint = 16
	// MaxCapacity is the largest slot capacity a table can be created with. It keeps the header size
	// representable on every platform.
	MaxCapacity = math.MaxInt32 / 32
)

// BindMode indicates whether SlotTable.Bind should format the region or trust an existing header
type BindMode uint32

const (
	// BindCreate formats a fresh region: the header is written and a single free slot covering the
	// full data region is recorded
	BindCreate BindMode = iota
	// BindAttach binds to a region that was already formatted with BindCreate, possibly by another
	// process sharing the same memory. The region contents are not modified.
	BindAttach
)

var bindModeMapping = map[BindMode]string{
	BindCreate: "BindCreate",
	BindAttach: "BindAttach",
}

func (m BindMode) String() string {
	return bindModeMapping[m]
}

// Slot is a single entry in the slot table. It lives inside the bound region, so its layout must
// not contain pointers.
type Slot struct {
	// Size is the number of bytes covered by this slot. Used slots always carry a size-class value.
	Size int
	// Offset is the position of the first byte of this slot, relative to the start of the data region
	Offset int
	// Free is true if the slot is not handed out to a consumer
	Free bool
}

// End returns the offset one past the last byte covered by the slot
func (s Slot) End() int {
	return s.Offset + s.Size
}

type arenaHeader struct {
	slotCount int
	maxSize   int
	capacity  int
}

var (
	headerStructSize = int(unsafe.Sizeof(arenaHeader{}))
	slotStructSize   = int(unsafe.Sizeof(Slot{}))
	headerAlignment  = uintptr(unsafe.Alignof(arenaHeader{}))
)

// HeaderSize returns the number of bytes at the start of a region that are reserved for the header of
// a slot table with the provided capacity. The data region begins immediately after.
func HeaderSize(capacity int) int {
	memutils.DebugCheckPow2(DataAlignment, "DataAlignment")
	return memutils.AlignUp(headerStructSize+capacity*slotStructSize, DataAlignment)
}

// SlotTable is the sole bookkeeping structure of an arena: a fixed-capacity array of slot descriptors
// stored in the header of the bound region, together with the active slot count. The ranges of all
// active slots tile the data region exactly.
//
// SlotTable performs no synchronization. Consumers must guarantee that only one goroutine (or process,
// for regions shared between processes) uses the table at a time.
type SlotTable struct {
	header *arenaHeader
	slots  []Slot
	data   []byte
}

var _ memutils.Validatable = &SlotTable{}

// NewSlotTable creates an unbound SlotTable. Bind must be called before it is used.
func NewSlotTable() *SlotTable {
	return &SlotTable{}
}

// Bind associates this table with a region of memory. The first successful call wins: once the table
// is bound, later calls return nil without looking at their arguments.
//
// capacity is the number of slot descriptors to reserve and is only consulted for BindCreate. When
// attaching, the capacity recorded in the header is used.
func (m *SlotTable) Bind(region []byte, capacity int, mode BindMode) error {
	if m.header != nil {
		return nil
	}

	if len(region) < headerStructSize {
		return errors.Wrapf(memutils.ErrRegionTooSmall, "region of %d bytes cannot hold the arena header", len(region))
	}

	if uintptr(unsafe.Pointer(&region[0]))%headerAlignment != 0 {
		return errors.Wrapf(memutils.ErrMisalignedRegion, "region must be aligned to %d bytes", headerAlignment)
	}

	header := (*arenaHeader)(unsafe.Pointer(&region[0]))

	switch mode {
	case BindCreate:
		if capacity < 1 || capacity > MaxCapacity {
			return errors.Wrapf(memutils.ErrInvalidCapacity, "capacity is %d, must be between 1 and %d", capacity, MaxCapacity)
		}
		if HeaderSize(capacity) >= len(region) {
			return errors.Wrapf(memutils.ErrRegionTooSmall,
				"region of %d bytes cannot hold a header of %d bytes and any data", len(region), HeaderSize(capacity))
		}
	case BindAttach:
		capacity = header.capacity
		if capacity < 1 || capacity > MaxCapacity || HeaderSize(capacity) >= len(region) {
			return errors.Wrapf(memutils.ErrRegionTooSmall,
				"region of %d bytes does not hold an arena header with capacity %d", len(region), capacity)
		}
		if header.maxSize != len(region) {
			return errors.Wrapf(memutils.ErrRegionSizeMismatch,
				"region is %d bytes, but was formatted as %d bytes", len(region), header.maxSize)
		}
	default:
		return errors.Newf("unknown bind mode: %d", mode)
	}

	headerSize := HeaderSize(capacity)
	firstSlot := (*Slot)(unsafe.Pointer(&region[headerStructSize]))

	m.header = header
	m.slots = unsafe.Slice(firstSlot, capacity)
	m.data = region[headerSize:]

	if mode == BindCreate {
		m.header.maxSize = len(region)
		m.header.capacity = capacity
		m.slots[0] = Slot{
			Size:   len(region) - headerSize,
			Offset: 0,
			Free:   true,
		}
		m.header.slotCount = 1
	}

	return nil
}

// IsBound returns true once Bind has succeeded
func (m *SlotTable) IsBound() bool { return m.header != nil }

// Count returns the number of active slots
func (m *SlotTable) Count() int { return m.header.slotCount }

// Capacity returns the maximum number of slots the table can record
func (m *SlotTable) Capacity() int { return len(m.slots) }

// IsFull returns true if no more slots can be recorded, meaning a free slot can no longer be split
func (m *SlotTable) IsFull() bool { return m.header.slotCount >= len(m.slots) }

// MaxSize returns the total size in bytes of the bound region, header included
func (m *SlotTable) MaxSize() int { return m.header.maxSize }

// DataSize returns the size in bytes of the data region that slots are carved from
func (m *SlotTable) DataSize() int { return len(m.data) }

// Data returns the full data region
func (m *SlotTable) Data() []byte { return m.data }

// Slot returns a copy of the slot descriptor at the provided table index
func (m *SlotTable) Slot(index int) Slot { return m.slots[index] }

// Slots returns the active slot descriptors. The returned slice aliases the region, so writes to it
// modify the table directly.
func (m *SlotTable) Slots() []Slot { return m.slots[:m.header.slotCount] }

// SlotBytes returns the memory covered by the slot at the provided table index
func (m *SlotTable) SlotBytes(index int) []byte {
	s := m.slots[index]
	return m.data[s.Offset:s.End():s.End()]
}

// Truncate shrinks the active slot count to count. It is used by compaction after live entries have
// been moved to the front of the table.
func (m *SlotTable) Truncate(count int) {
	if count < 0 || count > m.header.slotCount {
		panic(errors.AssertionFailedf("cannot truncate slot table of %d entries to %d", m.header.slotCount, count))
	}
	m.header.slotCount = count
}

// AllocationCount returns the number of slots currently in use
func (m *SlotTable) AllocationCount() int {
	var count int
	for _, s := range m.Slots() {
		if !s.Free {
			count++
		}
	}
	return count
}

// FreeRegionsCount returns the number of free slots. Adjacent free slots are only merged by
// compaction, so they are counted separately here.
func (m *SlotTable) FreeRegionsCount() int {
	return m.header.slotCount - m.AllocationCount()
}

// SumFreeSize returns the number of bytes held by free slots
func (m *SlotTable) SumFreeSize() int {
	var sum int
	for _, s := range m.Slots() {
		if s.Free {
			sum += s.Size
		}
	}
	return sum
}

func (m *SlotTable) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.SlotCount += m.header.slotCount
	stats.ArenaBytes += len(m.data)

	for _, s := range m.Slots() {
		if s.Free {
			stats.AddUnusedRange(s.Size)
		} else {
			stats.AddAllocation(s.Size)
		}
	}
}

func (m *SlotTable) AddStatistics(stats *memutils.Statistics) {
	stats.SlotCount += m.header.slotCount
	stats.ArenaBytes += len(m.data)
	stats.AllocationCount += m.AllocationCount()
	stats.AllocationBytes += len(m.data) - m.SumFreeSize()
}

// VisitAllRegions will call the provided callback once for each active slot, in table order
func (m *SlotTable) VisitAllRegions(handleRegion func(offset int, size int, free bool) error) error {
	for _, s := range m.Slots() {
		err := handleRegion(s.Offset, s.Size, s.Free)
		if err != nil {
			return err
		}
	}

	return nil
}

// BlockJsonData populates a json object with information about this table
func (m *SlotTable) BlockJsonData(json *jwriter.ObjectState) {
	json.Name("TotalBytes").Int(m.MaxSize())
	json.Name("DataBytes").Int(m.DataSize())
	json.Name("UnusedBytes").Int(m.SumFreeSize())
	json.Name("Allocations").Int(m.AllocationCount())
	json.Name("UnusedRanges").Int(m.FreeRegionsCount())
	json.Name("SlotCapacity").Int(m.Capacity())
}

// DebugLogAllAllocations calls logFunc once for every used slot
func (m *SlotTable) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, offset int, size int)) {
	for _, s := range m.Slots() {
		if !s.Free {
			logFunc(logger, s.Offset, s.Size)
		}
	}
}
