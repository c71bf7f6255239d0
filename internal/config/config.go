package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gradesync/internal/extractor"
	"gradesync/internal/match"
	"gradesync/internal/schema"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configuration values that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Default patterns. Comments look like `// POINTS: 3/5 (remark)` or `// POINTS: FULL`.
const (
	DefaultExerciseStart = `^\s*Exercise\s+(\S+)`
	DefaultComment       = `//\s?(.*)$`
	DefaultPoints        = `^\s*(?:POINTS:\s*)?(([^\s/]+)\s*/\s*[\d.]+)\s*(?:\((.*)\))?\s*$`
	DefaultFullPoints    = `^\s*(?:POINTS:\s*)?(FULL)\s*(?:\((.*)\))?\s*$`
	DefaultExamPattern   = `(.*)`
	DefaultGlobPattern   = "**/*"
	DefaultTypeDelay     = 1000
)

type Config struct {
	Project struct {
		Root string `yaml:"root"`
	} `yaml:"project"`
	Exercise struct {
		StartRegex string `yaml:"startRegex"`
		EndRegex   string `yaml:"endRegex"`
	} `yaml:"exercise"`
	Comment struct {
		Regex             string `yaml:"regex"`
		PointsRegex       string `yaml:"pointsRegex"`
		FullPointsRegex   string `yaml:"fullPointsRegex"`
		PointsPlaceHolder string `yaml:"pointsPlaceHolder"`
	} `yaml:"comment"`
	Exercises                    schema.Definitions `yaml:"exercises"`
	AllowMultiplePointsComments  bool               `yaml:"allowMultiplePointsComments"`
	AllowMultipleParsedExercises bool               `yaml:"allowMultipleParsedExercises"`
	ExamFiles                    struct {
		Pattern       string   `yaml:"pattern"`
		GlobPattern   string   `yaml:"globPattern"`
		SolutionFiles []string `yaml:"solutionFiles"`
		Ignore        []string `yaml:"ignore"`
	} `yaml:"examFiles"`
	// TypeDelay is in milliseconds; an explicit 0 disables debouncing.
	TypeDelay *int `yaml:"typeDelay"`
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("GRADESYNC_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if pattern := os.Getenv("GRADESYNC_EXAM_PATTERN"); pattern != "" {
		cfg.ExamFiles.Pattern = pattern
	}
	if delay := os.Getenv("GRADESYNC_TYPE_DELAY"); delay != "" {
		ms, err := strconv.Atoi(delay)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("%w: GRADESYNC_TYPE_DELAY=%q", ErrInvalidConfig, delay)
		}
		cfg.TypeDelay = &ms
	}

	return cfg, nil
}

// Parse decodes a YAML (or JSON) document and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if *cfg.TypeDelay < 0 {
		return nil, fmt.Errorf("%w: typeDelay must not be negative", ErrInvalidConfig)
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied and no exercises.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if c.Exercise.StartRegex == "" {
		c.Exercise.StartRegex = DefaultExerciseStart
	}
	if c.Comment.Regex == "" {
		c.Comment.Regex = DefaultComment
	}
	if c.Comment.PointsRegex == "" {
		c.Comment.PointsRegex = DefaultPoints
	}
	if c.Comment.FullPointsRegex == "" {
		c.Comment.FullPointsRegex = DefaultFullPoints
	}
	if c.Comment.PointsPlaceHolder == "" {
		c.Comment.PointsPlaceHolder = match.DefaultPlaceholder
	}
	if c.ExamFiles.Pattern == "" {
		c.ExamFiles.Pattern = DefaultExamPattern
	}
	if c.ExamFiles.GlobPattern == "" {
		c.ExamFiles.GlobPattern = DefaultGlobPattern
	}
	if len(c.ExamFiles.Ignore) == 0 {
		c.ExamFiles.Ignore = []string{".git", "node_modules", "vendor"}
	}
	if c.TypeDelay == nil {
		delay := DefaultTypeDelay
		c.TypeDelay = &delay
	}
}

// Patterns compiles the configured regular expressions.
func (c *Config) Patterns() (*extractor.Patterns, error) {
	return extractor.Compile(extractor.Sources{
		ExerciseStart: c.Exercise.StartRegex,
		ExerciseEnd:   c.Exercise.EndRegex,
		Comment:       c.Comment.Regex,
		Points:        c.Comment.PointsRegex,
		FullPoints:    c.Comment.FullPointsRegex,
	})
}

// Schema builds the expected exercise tree.
func (c *Config) Schema() []*schema.Exercise {
	return schema.Build(c.Exercises)
}

// Policy returns the duplicate handling options.
func (c *Config) Policy() match.Policy {
	return match.Policy{
		AllowMultiplePointsComments:  c.AllowMultiplePointsComments,
		AllowMultipleParsedExercises: c.AllowMultipleParsedExercises,
	}
}

// Delay is the debounce delay for change notifications.
func (c *Config) Delay() time.Duration {
	if c.TypeDelay == nil {
		return DefaultTypeDelay * time.Millisecond
	}
	return time.Duration(*c.TypeDelay) * time.Millisecond
}
