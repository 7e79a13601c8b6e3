package app

import (
	"net/http"

	"github.com/kassaio/kassa/internal/handler"
	"github.com/kassaio/kassa/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.DB.User(), &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)

	authHandler := handler.NewAuthHandler(&handler.AuthHandler{
		UserRepo:     app.DB.User(),
		WalletRepo:   app.DB.Wallet(),
		ActivityRepo: app.DB.Activity(),
		ErrHandler:   app.errorHandler,
		Helper:       app.Helper,
		Mailer:       app.Mailer,
		Config:       &app.Config,
	})

	walletHandler := handler.NewWalletHandler(&handler.WalletHandler{
		DB:              app.DB,
		WalletRepo:      app.DB.Wallet(),
		TransactionRepo: app.DB.Transaction(),
		FinanceRepo:     app.DB.Finance(),
		ActivityRepo:    app.DB.Activity(),
		ErrHandler:      app.errorHandler,
		Helper:          app.Helper,
		Kafka:           app.Kafka,
	})

	dealHandler := handler.NewDealHandler(&handler.DealHandler{
		DB:           app.DB,
		DealRepo:     app.DB.Deal(),
		FinanceRepo:  app.DB.Finance(),
		ActivityRepo: app.DB.Activity(),
		ErrHandler:   app.errorHandler,
		Helper:       app.Helper,
	})

	cronHandler := handler.NewCronHandler(&handler.CronHandler{
		Scanner:    app.Scanner,
		ErrHandler: app.errorHandler,
	})

	uploadHandler := handler.NewUploadHandler(&handler.UploadHandler{
		FileUploader: app.FileUploader,
		ErrHandler:   app.errorHandler,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/verify", authHandler.HandleAuthVerify)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	mux.Handle("GET /wallets/me", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleMyWallet)))
	mux.Handle("GET /wallets/by-user/{id}", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleWalletByUser)))
	mux.Handle("GET /wallets/{id}", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleWalletDetails)))
	mux.Handle("POST /wallets/{id}/deposit", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleDeposit)))

	mux.Handle("POST /deals", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(dealHandler.HandleCreateDeal)))
	mux.Handle("GET /deals", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(dealHandler.HandleMyDeals)))

	mux.Handle("POST /uploads/receipts", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(uploadHandler.HandleUploadReceipt)))

	// the platform scheduler calls this with the shared secret; some
	// schedulers can only issue GETs, so both verbs are accepted
	mux.Handle("GET /cron", middlewareRepo.RequireCronSecret(http.HandlerFunc(cronHandler.HandleOverdueScan)))
	mux.Handle("POST /cron", middlewareRepo.RequireCronSecret(http.HandlerFunc(cronHandler.HandleOverdueScan)))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
