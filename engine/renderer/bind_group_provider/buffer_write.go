package bind_group_provider

// BufferWrite is one queued upload into the buffer behind a binding, starting Offset bytes in.
// A single element of a uniform array is written this way.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
