package prune

// Config holds pruning configuration
type Config struct {
	// TopK is how many input features (by absolute weight) define an
	// output feature's influence set
	TopK int

	// DropNumber is the maximum number of output features to remove
	DropNumber int

	// Workers bounds the parallelism of the redundancy matrix build.
	// Zero or negative means one worker per CPU.
	Workers int
}

// DefaultConfig returns default pruning configuration
func DefaultConfig() Config {
	return Config{
		TopK:       512,
		DropNumber: 100,
		Workers:    0,
	}
}
