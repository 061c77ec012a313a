package shmarena

type AllocateSlotCallback func(
	allocator *Allocator,
	handle Handle,
	size int,
	userData interface{},
)

type FreeSlotCallback func(
	allocator *Allocator,
	handle Handle,
	size int,
	userData interface{},
)

type MemoryCallbackOptions struct {
	Allocate AllocateSlotCallback
	Free     FreeSlotCallback
	UserData interface{}
}

type memoryCallbacks struct {
	Callbacks *MemoryCallbackOptions
	Allocator *Allocator
}

func (c *memoryCallbacks) Allocate(
	handle Handle,
	size int,
) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Allocator, handle, size, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(
	handle Handle,
	size int,
) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Allocator, handle, size, c.Callbacks.UserData)
	}
}
