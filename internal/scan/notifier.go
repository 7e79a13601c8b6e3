package scan

import (
	"github.com/kassaio/kassa/internal/helper"
	"github.com/kassaio/kassa/internal/models"
	"github.com/kassaio/kassa/internal/smtp"
)

// Notifier delivers an overdue notice to the owner of an installment. The
// scanner only cares that delivery either worked or failed; the channel
// (email today, telegram some day) is the implementation's business.
type Notifier interface {
	NotifyOverdue(user *models.User, finance *models.Finance) error
}

type EmailNotifier struct {
	Mailer smtp.MailerInterface
	Helper *helper.HelperRepository
}

func NewEmailNotifier(mailer smtp.MailerInterface, helper *helper.HelperRepository) *EmailNotifier {
	return &EmailNotifier{
		Mailer: mailer,
		Helper: helper,
	}
}

func (n *EmailNotifier) NotifyOverdue(user *models.User, finance *models.Finance) error {
	emailData := n.Helper.NewEmailData()
	emailData["Name"] = user.FirstName + " " + user.LastName
	emailData["Amount"] = finance.Amount
	emailData["InstallmentNumber"] = finance.Idx + 1
	emailData["DueDate"] = finance.PaymentDate

	return n.Mailer.Send(user.Email, emailData, "overdue-notice.tmpl")
}
