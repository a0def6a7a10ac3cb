package email

// Config selects and configures the outbound mail transport.
// Driver is one of "postmark", "dir" or "log".
type Config struct {
	Driver               string `env:"EMAIL_DRIVER" envDefault:"log"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"billing@photovault.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@photovault.local"`
	OutputDir            string `env:"EMAIL_OUTPUT_DIR" envDefault:"./tmp/emails"`
}
