package mocks

import "github.com/mxichain/presale/internal/config"

var MockConfig = newMockConfig()

func newMockConfig() *config.Config {
	cfg := &config.Config{
		BaseURL:      "http://localhost",
		HttpPort:     8080,
		KafkaServers: "localhost:9092",
		RedisServer:  "localhost:6379",
	}

	cfg.Db.Dsn = "mock_dsn"
	cfg.Db.Automigrate = false

	cfg.Jwt.SecretKey = "test_secret"
	cfg.Notifications.Email = "no-reply@example.com"

	cfg.Smtp.Host = "smtp.example.com"
	cfg.Smtp.Port = 587
	cfg.Smtp.Username = "user@example.com"
	cfg.Smtp.Password = "password"
	cfg.Smtp.From = "no-reply@example.com"

	cfg.Chain.RpcURL = "http://localhost:8545"
	cfg.Chain.ChainID = 56
	cfg.Chain.UsdtContract = "0x55d398326f99059fF775485246999027B3197955"
	cfg.Chain.TreasuryWallet = "0x000000000000000000000000000000000000dEaD"
	cfg.Chain.Confirmations = 12
	cfg.Chain.UsdtDecimals = 18

	cfg.Presale.MinPurchaseUSDT = 20
	cfg.Presale.MaxPurchaseUSDT = 50000
	cfg.Presale.MonthlyRate = 0.03

	return cfg
}
