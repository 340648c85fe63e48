package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openepidata/graph-etl/external/fileindex"
	"github.com/openepidata/graph-etl/external/metadata"
	"github.com/openepidata/graph-etl/feed"
	"github.com/openepidata/graph-etl/store"
)

const (
	logPrefix      = "cron"
	defaultTimeout = 15 * time.Second
)

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("graphetl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func initLog() {
	logLevel, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func loadConfig(file string) {
	// Config from file
	viper.SetConfigType("yaml")
	if file != "" {
		viper.SetConfigFile(file)
	}

	viper.AddConfigPath("/.config/")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println("No config file. Read config from env.")
		viper.AllowEmptyEnv(false)
	}

	// Config from env if possible
	viper.AutomaticEnv()
	viper.SetEnvPrefix("graphetl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func main() {
	var configFile string

	flag.StringVar(&configFile, "c", "./config.yaml", "[optional] path of configuration file")
	flag.Parse()

	loadConfig(configFile)

	initLog()

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              viper.GetString("sentry.dsn"),
		AttachStacktrace: true,
		Environment:      viper.GetString("sentry.environment"),
	}); err != nil {
		log.Error(err)
	}

	var err error

	// initialise mongodb connections
	opts := options.Client().ApplyURI(viper.GetString("mongo.conn"))
	opts.SetMaxPoolSize(viper.GetUint64("mongo.pool"))
	mongoClient, err := mongo.NewClient(opts)
	if nil != err {
		log.Panicf("create mongo client with error: %s", err)
	}

	err = mongoClient.Connect(context.Background())
	if nil != err {
		log.Panicf("connect mongo database with error: %s", err)
	}

	mStore := store.NewMongoStore(
		mongoClient,
		viper.GetString("mongo.database"),
	)

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}

	metaClient, err := metadata.New(
		viper.GetString("metadata.endpoint"),
		viper.GetString("metadata.program"),
		viper.GetString("metadata.project"),
		viper.GetString("metadata.token"),
		httpClient,
	)
	if nil != err {
		log.Panicf("create metadata client with error: %s", err)
	}

	indexClient := fileindex.New(
		viper.GetString("fileindex.endpoint"),
		viper.GetString("fileindex.token"),
	)

	p := newPipeline(feed.NewClient(httpClient), mStore, metaClient, indexClient)

	if err := p.Run(context.Background()); nil != err {
		sentry.CaptureException(err)
		sentry.Flush(5 * time.Second)
		log.WithFields(log.Fields{"prefix": logPrefix, "error": err}).Error("pipeline run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	log.Info("Shutting down mongo store")
	_ = mongoClient.Disconnect(ctx)
}
