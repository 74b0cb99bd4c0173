// Package config holds the settings of the analyze command.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"

	"github.com/operator-framework/deployfix/pkg/deployfix/extractor"
)

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

type Config struct {
	Output         string        `json:"output" validate:"required,oneof=text json yaml"`
	LabelKey       string        `json:"labelKey" validate:"required"`
	QueryTimeout   time.Duration `json:"queryTimeout" validate:"gte=0"`
	Verbosity      int           `json:"verbosity" validate:"gte=0"`
	Watch          bool          `json:"watch"`
	MetricsFile    string        `json:"metricsFile"`
	Trace          bool          `json:"trace"`
	Explain        bool          `json:"explain"`
	FailOnConflict bool          `json:"failOnConflict"`
}

func Default() *Config {
	return &Config{
		Output:         OutputText,
		LabelKey:       extractor.DefaultLabelKey,
		FailOnConflict: true,
	}
}

// BindFlags registers one flag per setting on fs, using the current
// values as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Output, "output", "o", c.Output, "output format, one of text, json or yaml")
	fs.StringVar(&c.LabelKey, "label-key", c.LabelKey, "pod template label naming a workload")
	fs.DurationVar(&c.QueryTimeout, "query-timeout", c.QueryTimeout, "time limit for deciding a single entity, 0 for none")
	fs.IntVarP(&c.Verbosity, "verbosity", "v", c.Verbosity, "log verbosity")
	fs.BoolVar(&c.Watch, "watch", c.Watch, "analyze again whenever an input changes")
	fs.StringVar(&c.MetricsFile, "metrics-file", c.MetricsFile, "write prometheus metrics of the run to this file")
	fs.BoolVar(&c.Trace, "trace", c.Trace, "export OpenTelemetry spans to stderr")
	fs.BoolVar(&c.Explain, "explain", c.Explain, "print every refuted hypothesis to stderr while minimizing")
	fs.BoolVar(&c.FailOnConflict, "fail-on-conflict", c.FailOnConflict, "exit non-zero when an entity cannot be deployed")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must not be negative", fe.Field())
	}
	return fe.Error()
}
