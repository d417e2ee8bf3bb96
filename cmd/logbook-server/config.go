package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/logbookhq/logbook-server/internal/api/http"
	"github.com/logbookhq/logbook-server/internal/db"
	"github.com/logbookhq/logbook-server/internal/housekeeping"
	"github.com/logbookhq/logbook-server/internal/sink/search"
	"github.com/logbookhq/logbook-server/internal/sink/timeseries"
	"github.com/spf13/viper"
)

type Config struct {
	Log           LogConfig
	Http          http.Config
	Database      db.Config
	Elasticsearch search.Config
	Influxdb      timeseries.Config
	Housekeeping  housekeeping.Config
}

var config Config

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/logbook-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")
	_ = viper.BindEnv("elasticsearch.password", "ELASTICSEARCH_PASSWORD")
	_ = viper.BindEnv("influxdb.token", "INFLUXDB_TOKEN")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	// Initialize logger with configured log level
	initLogger(config.Log.Level)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
