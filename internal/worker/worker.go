package worker

import (
	"context"

	"github.com/kassaio/kassa/internal/helper"
	"github.com/kassaio/kassa/internal/repository"
	"github.com/kassaio/kassa/internal/smtp"
	"github.com/kassaio/kassa/internal/stream"
)

type Worker struct {
	KafkaStream     *stream.KafkaStream
	Ctx             context.Context
	Helper          *helper.HelperRepository
	Mailer          smtp.MailerInterface
	UserRepo        repository.UserRepository
	WalletRepo      repository.WalletRepository
	TransactionRepo repository.TransactionRepository
	DealRepo        repository.DealRepository
	FinanceRepo     repository.FinanceRepository
	ActivityRepo    repository.ActivityRepository
}

const (
	// depositAlertGroupID is used for workers that react whenever a deposit has been committed
	depositAlertGroupID = "deposit-alert-group"

	// overdueEscalationGroupID is used for workers that react whenever an installment turned overdue
	overdueEscalationGroupID = "overdue-escalation-group"
)

// Our workers typically needs access to the repositories and kafka event stream
// worker-specific dependency can be passed as argument to the worker
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream:     wk.KafkaStream,
		Ctx:             wk.Ctx,
		Helper:          wk.Helper,
		Mailer:          wk.Mailer,
		UserRepo:        wk.UserRepo,
		WalletRepo:      wk.WalletRepo,
		TransactionRepo: wk.TransactionRepo,
		DealRepo:        wk.DealRepo,
		FinanceRepo:     wk.FinanceRepo,
		ActivityRepo:    wk.ActivityRepo,
	}
}
