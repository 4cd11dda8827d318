package bind_group_provider

// BufferWrite is a pending queue write into a provider-owned buffer, flushed before the next dispatch.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
