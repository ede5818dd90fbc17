package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"quick-ratio/pkg/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix préfixe des variables d'environnement (QUICKRATIO_INPUT_PATH, QUICKRATIO_ENGINE_WINDOW_DAYS...).
// Pas de tag envconfig : envconfig retomberait sur la variable non préfixée (PATH, FORMAT...).
const EnvPrefix = "QUICKRATIO"

// Config représente la configuration complète de l'outil.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Columns ColumnsConfig `yaml:"columns"`
	Engine  EngineConfig  `yaml:"engine"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig : d'où viennent les événements (fichier ou base).
type InputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // csv, xlsx, sql ; déduit de Path si vide
	Sheet  string `yaml:"sheet"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// ColumnsConfig : colonnes choisies dans le jeu de données.
type ColumnsConfig struct {
	Entity    string `yaml:"entity"`
	Timestamp string `yaml:"timestamp"`
	Value     string `yaml:"value"`
	Segment   string `yaml:"segment"`
}

// EngineConfig : paramètres du calcul.
type EngineConfig struct {
	WindowDays []int `yaml:"window_days" split_words:"true"`
	PeriodDays int   `yaml:"period_days" split_words:"true"`
	UseSegment bool  `yaml:"use_segment" split_words:"true"`
	Workers    int   `yaml:"workers"`
	Progress   bool  `yaml:"progress"`
}

// OutputConfig : où écrire le tableau de métriques (stdout si Path vide).
type OutputConfig struct {
	Path        string `yaml:"path"`
	Format      string `yaml:"format"` // csv, xlsx, parquet, json ; déduit de Path si vide
	BOM         bool   `yaml:"bom"`
	Compression string `yaml:"compression"`
	Chart       string `yaml:"chart"` // séries JSON du graphique empilé (aucune si vide)
}

// LoggingConfig : logrus.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Output  string `yaml:"output"`
	MaxAge  int    `yaml:"max_age" split_words:"true"`
	Verbose bool   `yaml:"verbose"`
}

// Default renvoie la configuration par défaut (fenêtre de 7 jours, période d'un jour).
func Default() Config {
	return Config{
		Engine: EngineConfig{
			WindowDays: []int{7},
			PeriodDays: 1,
		},
		Output: OutputConfig{
			Compression: "snappy",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// Load : défauts → fichier YAML (si path non vide) → .env → variables QUICKRATIO_*.
// Les variables d'environnement non définies ne modifient pas les valeurs précédentes.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return &cfg, nil
}

// Validate vérifie la cohérence de la configuration avant tout calcul.
func (c *Config) Validate() error {
	var problems []string

	if c.Input.Path == "" && c.Input.DSN == "" {
		problems = append(problems, "input: path or dsn is required")
	}
	if c.Input.DSN != "" && c.Input.Table == "" {
		problems = append(problems, "input: table is required with dsn")
	}
	switch c.InputFormat() {
	case "csv", "xlsx", "sql":
	default:
		problems = append(problems, fmt.Sprintf("input: unsupported format %q", c.Input.Format))
	}
	if strings.TrimSpace(c.Columns.Entity) == "" {
		problems = append(problems, "columns: entity is required")
	}
	if strings.TrimSpace(c.Columns.Timestamp) == "" {
		problems = append(problems, "columns: timestamp is required")
	}
	if c.Engine.UseSegment && strings.TrimSpace(c.Columns.Segment) == "" {
		problems = append(problems, "columns: segment is required when use_segment is set")
	}
	if len(c.Engine.WindowDays) == 0 {
		problems = append(problems, "engine: at least one window size is required")
	}
	for _, w := range c.Engine.WindowDays {
		if w <= 0 {
			problems = append(problems, fmt.Sprintf("engine: window_days must be > 0, got %d", w))
		}
	}
	if c.Engine.PeriodDays <= 0 {
		problems = append(problems, fmt.Sprintf("engine: period_days must be > 0, got %d", c.Engine.PeriodDays))
	}
	if c.Engine.Workers < 0 {
		problems = append(problems, "engine: workers must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InputFormat renvoie le format d'entrée explicite ou déduit.
func (c *Config) InputFormat() string {
	if c.Input.Format != "" {
		return strings.ToLower(c.Input.Format)
	}
	if c.Input.DSN != "" {
		return "sql"
	}
	lower := strings.ToLower(c.Input.Path)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") {
		return "xlsx"
	}
	return "csv"
}

// Model convertit la configuration en paramètres du calculateur.
func (c *Config) Model() models.Config {
	return models.Config{
		Columns: models.Columns{
			Entity:    c.Columns.Entity,
			Timestamp: c.Columns.Timestamp,
			Value:     c.Columns.Value,
			Segment:   c.Columns.Segment,
		},
		WindowDays: c.Engine.WindowDays,
		PeriodDays: c.Engine.PeriodDays,
		UseSegment: c.Engine.UseSegment,
		Workers:    c.Engine.Workers,
		Progress:   c.Engine.Progress,
		Verbose:    c.Logging.Verbose,
	}
}

// ParseWindowSizes lit une liste "7,28" de tailles de fenêtre.
func ParseWindowSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("window size %q: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("window size must be > 0, got %d", n)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no window size in %q", s)
	}
	return sizes, nil
}
