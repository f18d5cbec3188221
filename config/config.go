// Package config loads nutricalc settings from defaults, an optional YAML
// file, a .env file and NUTRICALC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/aguxez/nutricalc/csvio"
	"github.com/aguxez/nutricalc/logging"
)

const EnvPrefix = "NUTRICALC"

type Settings struct {
	Server ServerSettings `mapstructure:"server"`
	Data   DataSettings   `mapstructure:"data"`
	CSV    CSVSettings    `mapstructure:"csv"`
	Log    LogSettings    `mapstructure:"log"`
	LLM    LLMSettings    `mapstructure:"llm"`
}

type ServerSettings struct {
	Addr string `mapstructure:"addr"`
}

// DataSettings points at the directories seeded at startup and, when Watch
// is set, merged again whenever a CSV file in them is written.
type DataSettings struct {
	FoodsDir string `mapstructure:"foods_dir"`
	MealsDir string `mapstructure:"meals_dir"`
	Watch    bool   `mapstructure:"watch"`
}

type CSVSettings struct {
	Labels string `mapstructure:"labels"` // en or ja
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type LLMSettings struct {
	Enabled      bool   `mapstructure:"enabled"`
	BaseURL      string `mapstructure:"base_url"`
	Token        string `mapstructure:"token"`
	Model        string `mapstructure:"model"`
	MemoryWindow int    `mapstructure:"memory_window"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("data.foods_dir", "data/foods")
	v.SetDefault("data.meals_dir", "data/meals")
	v.SetDefault("data.watch", true)
	v.SetDefault("csv.labels", csvio.English.Code)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.token", "")
	v.SetDefault("llm.model", "deepseek/deepseek-r1-distill-llama-70b")
	v.SetDefault("llm.memory_window", 5)
}

// Load reads settings into a fresh struct. configFile may be empty, in which
// case only defaults, .env and the environment apply.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.token", EnvPrefix+"_LLM_TOKEN", "OPENROUTER_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding llm token: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := Validate(settings); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return settings, nil
}

func Validate(s *Settings) error {
	var errs []error
	if s.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if _, err := csvio.LabelsFor(s.CSV.Labels); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if s.LLM.Enabled && s.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required when llm.enabled is set"))
	}
	if s.LLM.MemoryWindow < 0 {
		errs = append(errs, errors.New("llm.memory_window must not be negative"))
	}
	return errors.Join(errs...)
}

// Labels returns the CSV label set selected by the settings.
func (s *Settings) Labels() csvio.Labels {
	l, err := csvio.LabelsFor(s.CSV.Labels)
	if err != nil {
		return csvio.English
	}
	return l
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
