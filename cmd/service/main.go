package main

import (
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.vocdoni.io/dvote/log"

	"github.com/airpanel/billing-backend/api"
	"github.com/airpanel/billing-backend/db"
	"github.com/airpanel/billing-backend/exchange"
	"github.com/airpanel/billing-backend/stripe"
)

func main() {
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8080, "listen port")
	flag.StringP("secret", "s", "", "API secret for JWT signing")
	flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	flag.String("mongoURL", "", "The URL of the MongoDB server")
	flag.String("mongoDB", "billing-backend", "The name of the MongoDB database")
	flag.StringP("webURL", "w", "https://panel.example.com", "The URL of the web application")
	flag.String("stripeAPIKey", "", "Stripe secret key")
	flag.String("stripePublishableKey", "", "Stripe publishable key")
	flag.String("stripeCurrency", "USD", "Stripe settlement currency")
	flag.String("panelCurrency", "CNY", "currency of the user balances")
	flag.Float64("minRecharge", 1, "minimum recharge amount in the panel currency")
	flag.Float64("maxRecharge", 10000, "maximum recharge amount in the panel currency")
	flag.String("notifyURL", "", "public URL of the webhook receiver endpoint")
	flag.String("returnURL", "", "URL the hosted checkout page returns the user to")
	flag.String("exchangeAPIURL", exchange.DefaultAPIURL, "exchange rate API base URL")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("BILLING")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	secret := viper.GetString("secret")
	logLevel := viper.GetString("logLevel")
	mongoURL := viper.GetString("mongoURL")
	mongoDB := viper.GetString("mongoDB")
	webURL := viper.GetString("webURL")
	stripeConfig := &stripe.Config{
		APIKey:         viper.GetString("stripeAPIKey"),
		PublishableKey: viper.GetString("stripePublishableKey"),
		Currency:       viper.GetString("stripeCurrency"),
		PanelCurrency:  viper.GetString("panelCurrency"),
		MinRecharge:    viper.GetFloat64("minRecharge"),
		MaxRecharge:    viper.GetFloat64("maxRecharge"),
		NotifyURL:      viper.GetString("notifyURL"),
		ReturnURL:      viper.GetString("returnURL"),
	}
	log.Init(logLevel, "stdout", nil)
	if secret == "" {
		log.Fatal("secret is required")
	}
	// initialize the MongoDB database
	database, err := db.New(mongoURL, mongoDB)
	if err != nil {
		log.Fatalf("could not create the MongoDB database: %v", err)
	}
	defer database.Close()
	// create the Stripe gateway service
	stripeService, err := stripe.NewService(
		stripe.NewClient(stripeConfig), database, exchange.New(viper.GetString("exchangeAPIURL")), stripeConfig)
	if err != nil {
		log.Fatalf("could not create the Stripe service: %v", err)
	}
	// make sure the webhook endpoint is registered before serving traffic,
	// webhook deliveries cannot be verified without its signing secret
	if err := stripeService.EnsureWebhookEndpoint(); err != nil {
		log.Fatalf("could not register the Stripe webhook endpoint: %v", err)
	}
	// create the local API server
	api.New(&api.Config{
		Host:      host,
		Port:      port,
		Secret:    secret,
		WebAppURL: webURL,
		DB:        database,
		Stripe:    stripeService,
	}).Start()
	// wait forever, as the server is running in a goroutine
	log.Infow("server started", "host", host, "port", port)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
