package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/avadhworkzone/qna/api"
	"github.com/avadhworkzone/qna/db"
	"github.com/avadhworkzone/qna/stripe"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.DebugLevel)
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8080, "listen port")
	flag.StringP("secret", "s", "", "API secret shared with the identity service")
	flag.String("mongo-url", "", "The URL of the MongoDB server")
	flag.String("mongo-db", "qna", "The name of the MongoDB database")
	flag.String("stripe-api-secret", "", "Stripe API secret key")
	flag.String("stripe-webhook-secret", "", "Stripe webhook signing secret")
	flag.String("stripe-price-starter", "", "Stripe price ID of the starter tier")
	flag.String("stripe-price-growth", "", "Stripe price ID of the growth tier")
	flag.String("stripe-price-pro", "", "Stripe price ID of the pro tier")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("QNA")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	secret := viper.GetString("secret")
	if secret == "" {
		log.Fatal().Msg("secret is required")
	}
	mongoURL := viper.GetString("mongo-url")
	mongoDB := viper.GetString("mongo-db")
	billingConf := &stripe.Config{
		APIKey:        viper.GetString("stripe-api-secret"),
		WebhookSecret: viper.GetString("stripe-webhook-secret"),
		PriceStarter:  viper.GetString("stripe-price-starter"),
		PriceGrowth:   viper.GetString("stripe-price-growth"),
		PricePro:      viper.GetString("stripe-price-pro"),
	}
	if err := billingConf.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid billing configuration")
	}
	// initialize the MongoDB database
	database, err := db.New(mongoURL, mongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the MongoDB database")
	}
	defer database.Close()
	// create the billing service
	billing, err := stripe.NewService(billingConf, database)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the billing service")
	}
	// create the local API server
	api.New(&api.Config{
		Host:    host,
		Port:    port,
		Secret:  secret,
		DB:      database,
		Billing: billing,
	}).Start()
	// wait forever, as the server is running in a goroutine
	log.Info().Str("host", host).Int("port", port).Msg("server started")
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
