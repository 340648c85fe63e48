package main

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/openepidata/graph-etl/schema"
)

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("graphetl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func main() {
	schema.NewMongoDBIndexer(viper.GetString("mongo.conn"), viper.GetString("mongo.database")).IndexAll()
}
