package app

import (
	"net/http"

	"github.com/mxichain/presale/internal/handler"
	"github.com/mxichain/presale/internal/middleware"
	"github.com/mxichain/presale/internal/presale"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	mid := middleware.New(app.ErrorHandler, app.Logger, app.DB, &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.ErrorHandler)

	authHandler := handler.NewAuthHandler(&handler.AuthHandler{
		UserStore:     app.DB,
		ActivityStore: app.DB,
		ErrHandler:    app.ErrorHandler,
		Helper:        app.Helper,
		Mailer:        app.Mailer,
		Config:        &app.Config,
	})

	stageHandler := handler.NewStageHandler(&handler.StageHandler{
		StageStore:    app.DB,
		ActivityStore: app.DB,
		ErrHandler:    app.ErrorHandler,
		Helper:        app.Helper,
	})

	purchaseHandler := handler.NewPurchaseHandler(&handler.PurchaseHandler{
		PurchaseStore:         app.DB,
		StageStore:            app.DB,
		ActivityStore:         app.DB,
		Verifier:              app.Verifier,
		Kafka:                 app.Kafka,
		Cache:                 app.Cache,
		ErrHandler:            app.ErrorHandler,
		Helper:                app.Helper,
		Pricing: presale.Rules{
			MinPurchaseUSDT: app.Config.Presale.MinPurchaseUSDT,
			MaxPurchaseUSDT: app.Config.Presale.MaxPurchaseUSDT,
		},
		RequiredConfirmations: app.Config.Chain.Confirmations,
	})

	vestingHandler := handler.NewVestingHandler(&handler.VestingHandler{
		VestingStore:  app.DB,
		ActivityStore: app.DB,
		ErrHandler:    app.ErrorHandler,
		Helper:        app.Helper,
		MonthlyRate:   app.Config.Presale.MonthlyRate,
	})

	referralHandler := handler.NewReferralHandler(&handler.ReferralHandler{
		ReferralStore: app.DB,
		ErrHandler:    app.ErrorHandler,
	})

	kycHandler := handler.NewKycHandler(&handler.KycHandler{
		UserStore:     app.DB,
		KycStore:      app.DB,
		ActivityStore: app.DB,
		Uploader:      app.FileUploader,
		ErrHandler:    app.ErrorHandler,
		Helper:        app.Helper,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	mux.HandleFunc("GET /presale/stages", stageHandler.HandleListStages)
	mux.HandleFunc("GET /presale/stages/active", stageHandler.HandleActiveStage)

	mux.Handle("POST /purchases", mid.RequireAuthenticatedUser(http.HandlerFunc(purchaseHandler.HandleInitiatePurchase)))
	mux.Handle("GET /purchases", mid.RequireAuthenticatedUser(http.HandlerFunc(purchaseHandler.HandleListPurchases)))

	// callable without a session so payment processors and the client's
	// polling loop can both drive verification
	mux.HandleFunc("POST /verify-usdt-purchase", purchaseHandler.HandleVerifyPurchase)

	mux.Handle("GET /vesting", mid.RequireAuthenticatedUser(http.HandlerFunc(vestingHandler.HandleGetVesting)))

	mux.Handle("GET /referrals/stats", mid.RequireAuthenticatedUser(http.HandlerFunc(referralHandler.HandleReferralStats)))
	mux.Handle("GET /referrals/code", mid.RequireAuthenticatedUser(http.HandlerFunc(referralHandler.HandleReferralCode)))
	mux.Handle("GET /referrals/earnings", mid.RequireAuthenticatedUser(http.HandlerFunc(referralHandler.HandleReferralEarnings)))

	mux.Handle("POST /kyc/documents", mid.RequireAuthenticatedUser(http.HandlerFunc(kycHandler.HandleKycUpload)))
	mux.Handle("GET /kyc/documents", mid.RequireAuthenticatedUser(http.HandlerFunc(kycHandler.HandleListKycDocuments)))

	mux.Handle("POST /admin/stages/activate", mid.RequireAdminUser(http.HandlerFunc(stageHandler.HandleActivateStage)))
	mux.Handle("POST /admin/kyc/review", mid.RequireAdminUser(http.HandlerFunc(kycHandler.HandleKycReview)))
	mux.Handle("POST /admin/vesting/sync", mid.RequireAdminUser(http.HandlerFunc(vestingHandler.HandleForceVestingSync)))

	return mid.LogAccess(mid.RecoverPanic(mid.Authenticate(mux)))
}
