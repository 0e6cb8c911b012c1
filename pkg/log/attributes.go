// Standard attribute keys. Using them keeps records from the container codec,
// the orchestrator and the registry filterable with the same queries.

package log

// Model and Operation Context
const (
	// ModelNameKey is the name stored in the container header.
	ModelNameKey = "model.name"

	// ModelVersionKey is the header version string, e.g. "0.1.0".
	ModelVersionKey = "model.version"

	// EngineKey is the engine label from the header, e.g. "pytorch".
	EngineKey = "model.engine"

	// ContainerIDKey is the registry handle of a loaded container.
	ContainerIDKey = "container.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"
)

// Container framing
const (
	HeaderBytesKey = "container.header_bytes"
	ModelBytesKey  = "container.model_bytes"
	PathKey        = "container.path"
	StoreKindKey   = "store.kind"
)

// Data Shape
const (
	// FeaturesKey is the number of input columns bound in KeyBindings.
	FeaturesKey = "data.features"

	// SamplesKey is the number of rows in a batch prediction.
	SamplesKey = "data.samples"

	// ShapeKey is the resolved input tensor shape.
	ShapeKey = "data.shape"

	// DataTypeKey is the element type of an engine output.
	DataTypeKey = "data.type"
)

// Performance and results
const (
	DurationMsKey = "perf.duration_ms"
	OutputsKey    = "preds.count"
	R2ScoreKey    = "metrics.r2_score"
)

// Standard operation values.
const (
	OperationLoad            = "load"
	OperationSave            = "save"
	OperationRawCompute      = "raw_compute"
	OperationBufferedCompute = "buffered_compute"
	OperationPredict         = "predict"
	OperationScore           = "score"
	OperationFit             = "fit"
)
