package models

// Distance strategies supported by the dense vector space
const (
	DistanceCosine    = "Cosine"
	DistanceDot       = "Dot"
	DistanceEuclidean = "Euclid"
)

// Named vector spaces inside a collection. Every collection carries both: one
// dense space for the embedding model and one sparse space for term weights.
const (
	DenseVectorName  = "dense_vector"
	SparseVectorName = "sparse_vector"
)

// DenseVectorSize is fixed by the embedding model (text-embedding-3-small)
const DenseVectorSize = 1536

// HNSWConfig holds index build parameters for the dense space. Fixed at
// collection creation; changing them requires delete and recreate.
type HNSWConfig struct {
	M                 int  `json:"m"`
	EfConstruct       int  `json:"ef_construct"`
	FullScanThreshold int  `json:"full_scan_threshold"`
	OnDisk            bool `json:"on_disk"`
}

// CollectionConfig describes a named collection with its two vector spaces
type CollectionConfig struct {
	Name      string     `json:"name"`
	DenseSize int        `json:"dense_size"`
	Distance  string     `json:"distance"`
	HNSW      HNSWConfig `json:"hnsw"`
}

// DefaultCollectionConfig returns the fixed configuration every collection is
// created with
func DefaultCollectionConfig(name string) CollectionConfig {
	return CollectionConfig{
		Name:      name,
		DenseSize: DenseVectorSize,
		Distance:  DistanceCosine,
		HNSW: HNSWConfig{
			M:                 16,
			EfConstruct:       100,
			FullScanThreshold: 10000,
			OnDisk:            false,
		},
	}
}

// Validate checks if the collection configuration is valid
func (c *CollectionConfig) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "collection name is required"}
	}
	if c.DenseSize <= 0 {
		return &ValidationError{Field: "dense_size", Message: "dense vector size must be positive"}
	}
	switch c.Distance {
	case DistanceCosine, DistanceDot, DistanceEuclidean:
	default:
		return &ValidationError{Field: "distance", Message: "unknown distance strategy: " + c.Distance}
	}
	return nil
}
