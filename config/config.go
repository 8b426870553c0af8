// Package config holds the embedded defaults and turns viper settings into the
// typed options the converter runs with.
package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/spf13/viper"
)

// DefaultYAML is used when no configuration file is found.
const DefaultYAML = `
conversion:
  # empty means the year the conversion runs in
  default_year: ""
  saldo_filter_mode: substring
  saldo_markers:
    - SALDO
  debit_indicators: ["-", "D"]
  credit_indicators: ["C"]
  convention: supplier
  day_balance: true
  workers: 1
pdf:
  source: text
  unidoc_license_key: ""
layouts:
  GENERIC:
    priority: 0
    ignore_lines:
      - '(?i)^p[aá]gina\s*\d+'
  CAIXA:
    priority: 10
    detect: '(?i)caixa\s+econ[oô]mica|caixa\.gov\.br'
    ignore_lines:
      - '(?i)^data\s+mov'
      - '(?i)^extrato\s+por\s+per[ií]odo'
      - '(?i)^p[aá]gina\s*\d+'
      - '(?i)^(sac|ouvidoria)\b'
  SANTANDER:
    priority: 10
    detect: '(?i)banco\s+santander|santander\.com\.br'
    ignore_lines:
      - '(?i)^data\s+descri'
      - '(?i)^p[aá]gina\s*\d+'
      - '(?i)^(central de atendimento|internet banking)'
  ITAU:
    priority: 10
    detect: '(?i)ita[uú]\s+unibanco|banco\s+ita[uú]|itau\.com\.br'
    ignore_lines:
      - '(?i)^data\s+lan[cç]amento'
      - '(?i)^p[aá]gina\s*\d+'
      - '(?i)^(aviso|atendimento|ouvidoria)\b'
  BRADESCO:
    priority: 10
    detect: '(?i)bradesco'
    ignore_lines:
      - '(?i)^data\s+hist[oó]rico'
      - '(?i)^p[aá]gina\s*\d+'
      - '(?i)^(fone f[aá]cil|alô bradesco)'
`

// PDF selects how page content is extracted.
type PDF struct {
	Source     common.Source
	LicenseKey string
}

type Config struct {
	Conversion common.Options
	PDF        PDF
}

var now = time.Now

// ReadDefaults loads DefaultYAML into v.
func ReadDefaults(v *viper.Viper) error {
	v.SetConfigType("yaml")
	return v.ReadConfig(bytes.NewBufferString(DefaultYAML))
}

// Load validates the settings in v. Keys that are not set keep their defaults.
func Load(v *viper.Viper) (Config, error) {
	opts := common.DefaultOptions()
	opts.DefaultYear = now().Year()

	if raw := strings.TrimSpace(v.GetString("conversion.default_year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1900 || year > 9999 {
			return Config{}, fmt.Errorf("invalid conversion.default_year %q", raw)
		}
		opts.DefaultYear = year
	}

	if raw := v.GetString("conversion.saldo_filter_mode"); raw != "" {
		mode := common.SaldoFilterMode(strings.ToLower(raw))
		if mode != common.SaldoExact && mode != common.SaldoSubstring {
			return Config{}, fmt.Errorf("invalid conversion.saldo_filter_mode %q (want exact or substring)", raw)
		}
		opts.SaldoFilterMode = mode
	}

	if v.IsSet("conversion.saldo_markers") {
		opts.SaldoMarkers = v.GetStringSlice("conversion.saldo_markers")
	}
	if v.IsSet("conversion.debit_indicators") {
		opts.Indicators.Debit = v.GetStringSlice("conversion.debit_indicators")
	}
	if v.IsSet("conversion.credit_indicators") {
		opts.Indicators.Credit = v.GetStringSlice("conversion.credit_indicators")
	}

	if raw := v.GetString("conversion.convention"); raw != "" {
		convention := common.Convention(strings.ToLower(raw))
		if convention != common.ConventionSupplier && convention != common.ConventionClient {
			return Config{}, fmt.Errorf("invalid conversion.convention %q (want supplier or client)", raw)
		}
		opts.Convention = convention
	}

	if v.IsSet("conversion.day_balance") {
		opts.DayBalance = v.GetBool("conversion.day_balance")
	}
	if v.IsSet("conversion.workers") {
		opts.Workers = v.GetInt("conversion.workers")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	pdf := PDF{Source: common.SourceText, LicenseKey: v.GetString("pdf.unidoc_license_key")}
	if raw := v.GetString("pdf.source"); raw != "" {
		source := common.Source(strings.ToLower(raw))
		if source != common.SourceText && source != common.SourceTable {
			return Config{}, fmt.Errorf("invalid pdf.source %q (want text or table)", raw)
		}
		pdf.Source = source
	}

	return Config{Conversion: opts, PDF: pdf}, nil
}
