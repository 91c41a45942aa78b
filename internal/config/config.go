package config

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	KafkaServers string
	RedisServer  string
	Chain        struct {
		RpcURL         string
		ChainID        int64
		UsdtContract   string
		TreasuryWallet string
		Confirmations  uint64
		UsdtDecimals   int
	}
	Presale struct {
		MinPurchaseUSDT float64
		MaxPurchaseUSDT float64
		MonthlyRate     float64
	}
}
