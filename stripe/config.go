package stripe

import "fmt"

// DefaultPanelCurrency is the currency user balances are kept in.
const DefaultPanelCurrency = "CNY"

// Config holds the complete gateway configuration. It is populated once at
// startup and passed explicitly into the service, there are no ambient
// settings lookups at request time.
type Config struct {
	// APIKey is the Stripe secret key.
	APIKey string `yaml:"api_key" json:"api_key"`
	// PublishableKey is the Stripe publishable key, exposed to the web app.
	PublishableKey string `yaml:"publishable_key" json:"publishable_key"`
	// Currency is the settlement currency of the Stripe account.
	Currency string `yaml:"currency" json:"currency"`
	// PanelCurrency is the currency recharge amounts and balances use.
	PanelCurrency string `yaml:"panel_currency" json:"panel_currency"`
	// MinRecharge and MaxRecharge bound the accepted recharge amounts,
	// expressed in the panel currency.
	MinRecharge float64 `yaml:"min_recharge" json:"min_recharge"`
	MaxRecharge float64 `yaml:"max_recharge" json:"max_recharge"`
	// NotifyURL is the public URL of the webhook receiver endpoint.
	NotifyURL string `yaml:"notify_url" json:"notify_url"`
	// ReturnURL is where the hosted checkout page sends the user afterwards.
	ReturnURL string `yaml:"return_url" json:"return_url"`
	// ProductName labels the recharge line item on the hosted page.
	ProductName string `yaml:"product_name" json:"product_name"`
	// Locale configures the language of the hosted page.
	Locale string `yaml:"locale" json:"locale"`
}

// Validate checks the configuration and fills in the defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("stripe API key is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("settlement currency is required")
	}
	if c.NotifyURL == "" {
		return fmt.Errorf("webhook notify URL is required")
	}
	if c.ReturnURL == "" {
		// hosted checkout sessions cannot be created without a success URL
		return fmt.Errorf("checkout return URL is required")
	}
	if c.MinRecharge <= 0 || c.MaxRecharge < c.MinRecharge {
		return fmt.Errorf("invalid recharge bounds [%v, %v]", c.MinRecharge, c.MaxRecharge)
	}
	if c.PanelCurrency == "" {
		c.PanelCurrency = DefaultPanelCurrency
	}
	if c.ProductName == "" {
		c.ProductName = "Account balance recharge"
	}
	if c.Locale == "" {
		c.Locale = "auto"
	}
	return nil
}
