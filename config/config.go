package config

// CONFIGURATION STRUCTURE FOR THE HOLDER CONFIG

var DefaultResolverMethods = []string{"key", "ethr", "jwk", "web"}

// general structure of the configuration file
type Configuration struct {
	Server   Server   `mapstructure:"server"`
	Logging  Logging  `mapstructure:"logging"`
	Holder   Holder   `mapstructure:"holder"`
	Signing  Signing  `mapstructure:"signing"`
	Siop     Siop     `mapstructure:"siop"`
	Resolver Resolver `mapstructure:"resolver"`
}

// general configuration to run the application
type Server struct {
	// port to bind the server
	Port int `mapstructure:"port" default:"8080"`
}

// logging config
type Logging struct {
	// loglevel to be used - can be DEBUG, INFO, WARN or ERROR
	Level string `mapstructure:"level" default:"INFO"`
	// should the logging in a structured json format
	JsonLogging bool `mapstructure:"jsonLogging" default:"true"`
	// should requests be logged
	LogRequests bool `mapstructure:"logRequests" default:"true"`
	// list of paths to be ignored on request logging(could be often called operational endpoints like f.e. metrics)
	PathsToSkip []string `mapstructure:"pathsToSkip"`
}

// the identity the holder acts as
type Holder struct {
	// did of the holder, used as iss and sub of the tokens
	Did string `mapstructure:"did"`
	// location of a JWK file containing the holders private key
	KeyPath string `mapstructure:"keyPath"`
	// curve to be used when keys are imported without an explicit curve
	DefaultCurve string `mapstructure:"defaultCurve" default:"secp256k1"`
	// validity of issued tokens in days, 0 means practically unlimited
	ValidDays int `mapstructure:"validDays"`
}

// configuration of the token signing
type Signing struct {
	// how to treat nbf claims provided by the caller - iat forces them to the iat value, keep leaves them untouched
	NbfPolicy string `mapstructure:"nbfPolicy" default:"iat"`
	// typ header to be used if nothing else is requested
	Typ string `mapstructure:"typ" default:"JWT"`
}

// configuration of the siop flow
type Siop struct {
	// reject unknown response modes instead of handling them like query
	StrictResponseMode bool `mapstructure:"strictResponseMode"`
	// timeout for direct_post calls to the relying party in seconds
	DirectPostTimeout int `mapstructure:"directPostTimeout" default:"30"`
}

// configuration of the did resolution
type Resolver struct {
	// did methods to be resolvable, DefaultResolverMethods if empty
	Methods []string `mapstructure:"methods"`
	// expiry of resolved keys in the cache in seconds, 0 disables the cache
	CacheExpiry int `mapstructure:"cacheExpiry" default:"300"`
	// allowed clock skew for temporal claims in seconds
	ClockSkew int `mapstructure:"clockSkew"`
}
