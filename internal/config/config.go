package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	RawDir    string
	RawSheet  string
	OutputDir string

	Variant        string
	DictionaryPath string
	RulesPath      string
	InputFile      string
	OutputFile     string
	CSVDelimiter   rune
	Workers        int

	Log LogConfig

	ListenerIntervalSec int
	ListenerAutoXLSX    bool
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	variant := strings.ToLower(strings.TrimSpace(getEnv("VARIANT", "kits")))
	dictDefault, rulesDefault := defaultConfigFiles(variant)

	delimiter, err := parseDelimiter(getEnv("CSV_DELIMITER", "|"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawDir:    getEnv("RAW_DIR", filepath.Join(cwd, "dataraw")),
		RawSheet:  getEnv("RAW_SHEET", "DatosParte1"),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "data")),

		Variant:        variant,
		DictionaryPath: getEnv("DICTIONARY_PATH", filepath.Join(cwd, "configs", dictDefault)),
		RulesPath:      getEnv("RULES_PATH", filepath.Join(cwd, "configs", rulesDefault)),
		InputFile:      getEnv("INPUT_FILE", "dataraw.csv"),
		OutputFile:     getEnv("OUTPUT_FILE", "resultado_"+variant+"_procesado.csv"),
		CSVDelimiter:   delimiter,
		Workers:        getEnvInt("WORKERS", 4),

		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},

		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 60),
		ListenerAutoXLSX:    getEnvBool("LISTENER_AUTO_XLSX", false),
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	return cfg, nil
}

// defaultConfigFiles returns the dictionary and rule file names each variant ships with.
func defaultConfigFiles(variant string) (string, string) {
	if variant == "kits" {
		return "diccionario_kits.json", "expresiones_regulares_kits.json"
	}
	return "diccionario.json", "expresiones_regulares.json"
}

// WithVariant switches variant and, unless overridden by env, the
// dictionary, rule and output file names that go with it.
func (c Config) WithVariant(variant string) Config {
	variant = strings.ToLower(strings.TrimSpace(variant))
	if variant == "" || variant == c.Variant {
		return c
	}
	dict, rules := defaultConfigFiles(variant)
	if _, ok := os.LookupEnv("DICTIONARY_PATH"); !ok {
		c.DictionaryPath = filepath.Join(filepath.Dir(c.DictionaryPath), dict)
	}
	if _, ok := os.LookupEnv("RULES_PATH"); !ok {
		c.RulesPath = filepath.Join(filepath.Dir(c.RulesPath), rules)
	}
	if _, ok := os.LookupEnv("OUTPUT_FILE"); !ok {
		c.OutputFile = "resultado_" + variant + "_procesado.csv"
	}
	c.Variant = variant
	return c
}

func parseDelimiter(value string) (rune, error) {
	switch value {
	case "\\t", "tab":
		return '\t', nil
	}
	runes := []rune(value)
	if len(runes) != 1 {
		return 0, fmt.Errorf("CSV_DELIMITER must be a single character, got %q", value)
	}
	return runes[0], nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
