package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sensor kinds.
const (
	SensorDS18B20 = "ds18b20"
	SensorNTC     = "ntc"
	SensorFixed   = "fixed"
)

// Hardware drivers.
const (
	DriverRPIO      = "rpio"
	DriverSimulated = "simulated"
)

// NTC transfer functions.
const (
	TransferSteinhart = "steinhart"
	TransferLinear    = "linear"
)

const envPrefix = "MOBIREMOTE"

// Config is the full process configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Port      string          `mapstructure:"port"`
	DB        DBConfig        `mapstructure:"db"`
	Auth      AuthConfig      `mapstructure:"auth"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Appliance ApplianceConfig `mapstructure:"appliance"`
	Hardware  HardwareConfig  `mapstructure:"hardware"`
	Sensor    SensorConfig    `mapstructure:"sensor"`
	Influx    InfluxConfig    `mapstructure:"influx"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// MQTTConfig holds broker parameters. Values stored in the persisted record
// take precedence over these at runtime.
type MQTTConfig struct {
	Broker         string `mapstructure:"broker"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	ClientID       string `mapstructure:"client_id"`
	TopicPrefix    string `mapstructure:"topic_prefix"`
	ConnectRetries int    `mapstructure:"connect_retries"`
}

type ApplianceConfig struct {
	MinTarget int `mapstructure:"min_target"`
	MaxTarget int `mapstructure:"max_target"`
}

// PinConfig maps controls to BCM GPIO numbers. Zero disables the optional
// LED and reset pins.
type PinConfig struct {
	Power     int `mapstructure:"power"`
	Confirm   int `mapstructure:"confirm"`
	Increment int `mapstructure:"increment"`
	Decrement int `mapstructure:"decrement"`
	LED       int `mapstructure:"led"`
	Reset     int `mapstructure:"reset"`
}

type HardwareConfig struct {
	Driver     string        `mapstructure:"driver"`
	ActiveHigh bool          `mapstructure:"active_high"`
	LEDActive  bool          `mapstructure:"led_active_high"`
	ResetPoll  time.Duration `mapstructure:"reset_poll"`
	Pins       PinConfig     `mapstructure:"pins"`
}

type DS18B20Config struct {
	Path string `mapstructure:"path"`
}

type NTCConfig struct {
	RawPath        string  `mapstructure:"raw_path"`
	Samples        int     `mapstructure:"samples"`
	ADCMax         float64 `mapstructure:"adc_max"`
	SeriesResistor float64 `mapstructure:"series_resistor"`
	Transfer       string  `mapstructure:"transfer"`
	A              float64 `mapstructure:"a"`
	B              float64 `mapstructure:"b"`
	C              float64 `mapstructure:"c"`
	Slope          float64 `mapstructure:"slope"`
	Offset         float64 `mapstructure:"offset"`
}

type FixedConfig struct {
	Celsius float64 `mapstructure:"celsius"`
}

type SensorConfig struct {
	Kind            string        `mapstructure:"kind"`
	Interval        time.Duration `mapstructure:"interval"`
	ReportThreshold float64       `mapstructure:"report_threshold"`
	DS18B20         DS18B20Config `mapstructure:"ds18b20"`
	NTC             NTCConfig     `mapstructure:"ntc"`
	Fixed           FixedConfig   `mapstructure:"fixed"`
}

type BreakerConfig struct {
	Failures int           `mapstructure:"failures"`
	OpenFor  time.Duration `mapstructure:"open_for"`
}

type InfluxConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Org     string        `mapstructure:"org"`
	Bucket  string        `mapstructure:"bucket"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

var (
	errTargetRange = errors.New("appliance.min_target must be lower than appliance.max_target")
	errInterval    = errors.New("sensor.interval must be positive")
	errThreshold   = errors.New("sensor.report_threshold must be positive")
)

// SetDefaults registers a default for every key so that a missing config
// file still yields a runnable, simulated controller.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "mobiremote.db")

	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "esp-mobiremote")
	v.SetDefault("mqtt.topic_prefix", "mobiremote/")
	v.SetDefault("mqtt.connect_retries", 0)

	v.SetDefault("appliance.min_target", -10)
	v.SetDefault("appliance.max_target", 20)

	v.SetDefault("hardware.driver", DriverSimulated)
	v.SetDefault("hardware.active_high", true)
	v.SetDefault("hardware.led_active_high", false)
	v.SetDefault("hardware.reset_poll", 100*time.Millisecond)
	v.SetDefault("hardware.pins.power", 17)
	v.SetDefault("hardware.pins.confirm", 27)
	v.SetDefault("hardware.pins.increment", 22)
	v.SetDefault("hardware.pins.decrement", 23)
	v.SetDefault("hardware.pins.led", 24)
	v.SetDefault("hardware.pins.reset", 0)

	v.SetDefault("sensor.kind", SensorFixed)
	v.SetDefault("sensor.interval", 5*time.Second)
	v.SetDefault("sensor.report_threshold", 0.1)
	v.SetDefault("sensor.ntc.raw_path", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw")
	v.SetDefault("sensor.ntc.samples", 16)
	v.SetDefault("sensor.ntc.adc_max", 4095.0)
	v.SetDefault("sensor.ntc.series_resistor", 10000.0)
	v.SetDefault("sensor.ntc.transfer", TransferSteinhart)
	v.SetDefault("sensor.ntc.a", 1.009249522e-03)
	v.SetDefault("sensor.ntc.b", 2.378405444e-04)
	v.SetDefault("sensor.ntc.c", 2.019202697e-07)
	v.SetDefault("sensor.fixed.celsius", 20.0)

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.bucket", "mobiremote")
	v.SetDefault("influx.breaker.failures", 3)
	v.SetDefault("influx.breaker.open_for", 30*time.Second)
}

// Load reads configs/config.yml (or ./config.yml), applies MOBIREMOTE_*
// environment overrides and validates the result. A missing file is not an
// error.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Appliance.MinTarget >= c.Appliance.MaxTarget {
		return errTargetRange
	}
	if c.Sensor.Interval <= 0 {
		return errInterval
	}
	if c.Sensor.ReportThreshold <= 0 {
		return errThreshold
	}
	switch c.Sensor.Kind {
	case SensorDS18B20, SensorFixed:
	case SensorNTC:
		if c.Sensor.NTC.Samples <= 0 {
			return fmt.Errorf("sensor.ntc.samples must be positive, got %d", c.Sensor.NTC.Samples)
		}
		if c.Sensor.NTC.Transfer != TransferSteinhart && c.Sensor.NTC.Transfer != TransferLinear {
			return fmt.Errorf("unknown sensor.ntc.transfer %q", c.Sensor.NTC.Transfer)
		}
	default:
		return fmt.Errorf("unknown sensor.kind %q", c.Sensor.Kind)
	}
	switch c.Hardware.Driver {
	case DriverRPIO, DriverSimulated:
	default:
		return fmt.Errorf("unknown hardware.driver %q", c.Hardware.Driver)
	}
	return nil
}
