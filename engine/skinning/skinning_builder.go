package skinning

// SkinnerOption is a functional option for configuring a Skinner via NewSkinner.
type SkinnerOption func(*skinner)

// WithWorkers is an option builder that sets the number of pool workers. One or fewer skins inline.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - SkinnerOption: a function that applies the worker option
func WithWorkers(n int) SkinnerOption {
	return func(s *skinner) {
		s.workers = n
	}
}

// WithChunkSize is an option builder that sets how many vertices each pool task skins.
// Meshes no larger than one chunk are skinned inline.
//
// Parameters:
//   - n: vertices per chunk, must be positive
//
// Returns:
//   - SkinnerOption: a function that applies the chunk size option
func WithChunkSize(n int) SkinnerOption {
	return func(s *skinner) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}
