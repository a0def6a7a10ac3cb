package family

// Config describes the takeover checkout.
type Config struct {
	PriceID    string `env:"BILLING_PRICE_ID" envDefault:"price_family_annual"`
	SuccessURL string `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:8080/takeover/success"`
	CancelURL  string `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:8080/takeover/cancelled"`
}
