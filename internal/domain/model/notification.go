package model

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is the user-facing message for one terminal outcome.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Catalog keys for the notifications the payment flow emits.
const (
	MsgPaymentSuccessTitle = "payment.success.title"
	MsgPaymentSuccessBody  = "payment.success.body"
	MsgPaymentFailedTitle  = "payment.failed.title"
	MsgPaymentFailedBody   = "payment.failed.body"
	MsgRenewalSuccessTitle = "renewal.success.title"
	MsgRenewalSuccessBody  = "renewal.success.body"
	MsgRenewalFailedTitle  = "renewal.failed.title"
	MsgRenewalFailedBody   = "renewal.failed.body"
	MsgUpgradeTitle        = "premium.upgrade.title"
	MsgUpgradeBody         = "premium.upgrade.body"
)
