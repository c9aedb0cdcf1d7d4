package mesh

// MaxInfluences is the number of joint influence slots carried by each vertex.
const MaxInfluences = 4

// DefaultWeightTolerance is the allowed deviation of a vertex's weight sum from 1.
const DefaultWeightTolerance = 1e-4

// Vertex holds the immutable rest-pose attributes of a single skinned vertex.
// Unused influence slots carry joint index 0 and weight 0.
type Vertex struct {
	Position     [3]float32
	JointIndices [MaxInfluences]uint32
	Weights      [MaxInfluences]float32
}

// Triangle is a triple of vertex indices, counter-clockwise when viewed from the front.
type Triangle [3]uint32
