package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mxichain/presale/internal/cache"
	"github.com/mxichain/presale/internal/chain"
	"github.com/mxichain/presale/internal/config"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/env"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/file"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/presale"
	"github.com/mxichain/presale/internal/smtp"
	"github.com/mxichain/presale/internal/stream"
	"github.com/mxichain/presale/internal/vesting"

	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config       config.Config
	DB           *database.DB
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	ErrorHandler *errHandler.ErrorHandler
	Helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	FileUploader *file.FileUploader
	Cache        *cache.Cache
	Verifier     *chain.Verifier
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "MXI Pre-Sale <no_reply@example.org>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")
	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.Chain.RpcURL = env.GetString("CHAIN_RPC_URL", "https://bsc-dataseed.binance.org")
	cfg.Chain.ChainID = env.GetInt64("CHAIN_ID", 56)
	cfg.Chain.UsdtContract = env.GetString("USDT_CONTRACT", "0x55d398326f99059fF775485246999027B3197955")
	cfg.Chain.TreasuryWallet = env.GetString("TREASURY_WALLET", "")
	cfg.Chain.Confirmations = uint64(env.GetInt64("CHAIN_CONFIRMATIONS", 12))
	cfg.Chain.UsdtDecimals = env.GetInt("USDT_DECIMALS", 18)

	cfg.Presale.MinPurchaseUSDT = env.GetFloat64("PRESALE_MIN_PURCHASE_USDT", presale.MinPurchaseUSDT)
	cfg.Presale.MaxPurchaseUSDT = env.GetFloat64("PRESALE_MAX_PURCHASE_USDT", presale.MaxPurchaseUSDT)
	cfg.Presale.MonthlyRate = env.GetFloat64("VESTING_MONTHLY_RATE", vesting.DefaultMonthlyRate)

	db, err := database.New(cfg.Db.Dsn, cfg.Db.Automigrate, cfg.Presale.MonthlyRate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app := &Application{
		Config: cfg,
		DB:     db,
		Logger: logger,
		Mailer: mailer,
	}

	app.Helper = helper.New(&app.Config.BaseURL, &app.WG)
	app.ErrorHandler = errHandler.New(cfg.Notifications.Email, mailer, logger, app.Helper)
	app.Helper.RegisterErrorReporter(app.ErrorHandler)

	app.Kafka = stream.New(cfg.KafkaServers)
	app.Cache = cache.New(cfg.RedisServer, 0)
	app.FileUploader = file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)

	app.Verifier = chain.NewVerifier(
		cfg.Chain.RpcURL,
		cfg.Chain.ChainID,
		cfg.Chain.UsdtContract,
		cfg.Chain.TreasuryWallet,
		cfg.Chain.Confirmations,
		cfg.Chain.UsdtDecimals,
	)

	return app, nil
}
