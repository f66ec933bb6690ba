package main

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const targetSheetURL = "https://docs.google.com/spreadsheets/d/1pTH3minpoZMoT1xicadDF3WCSqKNugrUvplcpS9U__8/edit?gid=0"

// Config holds everything the service reads from the environment.
type Config struct {
	Environment    string   `mapstructure:"ENV"`
	Port           string   `mapstructure:"PORT"`
	BQKeyPath      string   `mapstructure:"BQ_KEY_PATH"`
	BQProjectID    string   `mapstructure:"BQ_PROJECT_ID"`
	OrdersTable    string   `mapstructure:"BQ_ORDERS_TABLE"`
	PricesTable    string   `mapstructure:"BQ_PRICES_TABLE"`
	GSheetKeyPath  string   `mapstructure:"GSHEET_KEY_PATH"`
	GSheetURL      string   `mapstructure:"GSHEET_URL"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
}

var configDefaults = map[string]string{
	"ENV":             "development",
	"PORT":            "5000",
	"BQ_KEY_PATH":     "Key/gg_big_query.json",
	"BQ_PROJECT_ID":   "",
	"BQ_ORDERS_TABLE": "crypto-arcade-453509-i8.dtm.t1_pancake_pos_order_total",
	"BQ_PRICES_TABLE": "crypto-arcade-453509-i8.dtm.t1_bang_gia_san_pham",
	"GSHEET_KEY_PATH": "Key/google_sheet.json",
	"GSHEET_URL":      targetSheetURL,
	"ALLOWED_ORIGINS": "*",
}

// LoadConfig reads a local .env file if there is one, then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
		// AutomaticEnv only resolves keys viper already knows about.
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, err
	}
	config.AllowedOrigins = splitOrigins(v.GetString("ALLOWED_ORIGINS"))
	return config, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
