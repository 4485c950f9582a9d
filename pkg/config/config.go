package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	LogLevel          string  // sets the log level (zap log level values)
	LogFormat         string  // text vs json
	LogConfig         string  // path to log config file (zapfilter rules)
	EnableTelemetry   bool    // enable telemetry
	TelemetryEndpoint string  // endpoint for telemetry, "stdout" writes to stdout
	WaitForServices   string  // duration to wait for other services to be ready
	ProfilingPort     int     // port for profiling
	GeminiAPIKey      string  // credential for the model backend
	Model             string  // model name used for forecasts
	Temperature       float64 // sampling temperature for the model
	MaxAttempts       int     // attempts per forecast request
	RetryDelay        string  // fixed delay between attempts
	PitThreshold      float64 // lap time loss in seconds which triggers a pit stop
	TargetLaps        int     // default number of laps to predict
	CatalogFile       string  // optional track catalog override (yaml)
	DataDir           string  // directory holding the telemetry csv files
	CacheExpiration   string  // lifetime of cached telemetry tables
	ServerAddr        string  // listen addr for the HTTP API
	APIToken          string  // token required for API access (optional)
	NatsURL           string  // NATS server for report broadcast (optional)
	NatsSubject       string  // subject prefix for report broadcast
)
