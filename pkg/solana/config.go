package solana

type Environment string

const (
	EnvironmentLocal Environment = "http://localhost:8899"
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
)

// ResolveEnvironment maps the short cluster names used in configuration onto
// their RPC endpoints. Anything else is treated as an explicit endpoint.
func ResolveEnvironment(name string) Environment {
	switch name {
	case "localhost", "local":
		return EnvironmentLocal
	case "devnet", "dev":
		return EnvironmentDev
	case "testnet", "test":
		return EnvironmentTest
	case "mainnet-beta", "mainnet", "prod":
		return EnvironmentProd
	}
	return Environment(name)
}
