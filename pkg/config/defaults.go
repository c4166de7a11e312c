package config

// Discovery defaults.
const (
	DefaultDirectory = "app/Models"
	DefaultRecursive = false
	DefaultBaseModel = `Illuminate\Database\Eloquent\Model`
	DefaultExtension = ".php"
	DefaultStrict    = false
	// DefaultWorkers of 0 means one worker per CPU.
	DefaultWorkers   = 0
	DefaultCacheSize = 1024
)

// Output defaults.
const (
	DefaultFormat  = FormatText
	DefaultNoColor = false
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
	DefaultMetricsAddr  = ""
)

// Neo4j defaults.
const (
	DefaultNeo4jURI      = "neo4j://localhost:7687"
	DefaultNeo4jUser     = "neo4j"
	DefaultNeo4jPassword = ""
	DefaultNeo4jDatabase = ""
)
