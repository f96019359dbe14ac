package config

const (
	// EnvPrefix namespaces every environment variable this service reads.
	EnvPrefix = "LMN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LMN_DB_DSN"
	EnvDBHost = "LMN_DB_HOST"
	EnvDBUser = "LMN_DB_USER"
	EnvDBName = "LMN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
