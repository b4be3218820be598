package cnst

const (
	// ApiServerYaml is the default configuration file of the apiserver
	ApiServerYaml = "apiserver.yaml"
)

// Supported database types
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeMySQL    = "mysql"
)

// Supported delivery provider types
const (
	ProviderSimulated = "simulated"
	ProviderEvolution = "evolution"
)
