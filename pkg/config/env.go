package config

// EnvPrefix is empty because every variable carries its full CROPCHAIN_ name in the struct tags.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DocStoreDriverSQL       = "sql"
	DocStoreDriverFirestore = "firestore"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

const (
	EnvAppEnv             = "CROPCHAIN_APP_ENV"
	EnvPort               = "CROPCHAIN_APP_PORT"
	EnvDBDSN              = "CROPCHAIN_DB_DSN"
	EnvDBHost             = "CROPCHAIN_DB_HOST"
	EnvDBUser             = "CROPCHAIN_DB_USER"
	EnvDBName             = "CROPCHAIN_DB_NAME"
	EnvRedisURL           = "CROPCHAIN_REDIS_URL"
	EnvJWTSecret          = "CROPCHAIN_JWT_SECRET"
	EnvJWTIssuer          = "CROPCHAIN_JWT_ISSUER"
	EnvDocStoreDriver     = "CROPCHAIN_DOCSTORE_DRIVER"
	EnvFirestoreProjectID = "CROPCHAIN_FIRESTORE_PROJECT_ID"
	EnvCartTTL            = "CROPCHAIN_CART_TTL"
	EnvCORSOrigins        = "CROPCHAIN_CORS_ORIGINS"
	EnvCheckoutRateLimit  = "CROPCHAIN_CHECKOUT_RATE_LIMIT"
	EnvAuthProvider       = "CROPCHAIN_AUTH_PROVIDER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
