package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mobiremote/internal/config"
	"mobiremote/internal/controller"
	"mobiremote/internal/gpio"
	"mobiremote/internal/handlers"
	"mobiremote/internal/logger"
	"mobiremote/internal/metrics"
	"mobiremote/internal/models"
	"mobiremote/internal/repository"
	"mobiremote/internal/repository/db"
	"mobiremote/internal/sensor"
	"mobiremote/internal/sequencer"
	"mobiremote/internal/server"
	"mobiremote/internal/service"
	"mobiremote/internal/telemetry"
	"mobiremote/internal/transport/mqtt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"github.com/stianeikeland/go-rpio/v4"
)

const shutdownTimeout = 10 * time.Second

// hardware is the driver-specific part of the wiring.
type hardware struct {
	actuator  sequencer.Actuator
	indicator gpio.Indicator
	reset     *gpio.ResetButton
	close     func()
}

func main() {
	cfg, err := config.Load(viper.New())
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("config_load_failed", "err", err)
	}
	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("sqlite_init_failed", "path", cfg.DB.Path, "err", err)
	}
	defer closeDB(sqlDB, log)

	hw, err := openHardware(cfg.Hardware, log)
	if err != nil {
		log.Fatalw("gpio_init_failed", "driver", cfg.Hardware.Driver, "err", err)
	}
	defer hw.close()

	temp, err := sensor.New(cfg.Sensor, log)
	if err != nil {
		log.Fatalw("sensor_init_failed", "kind", cfg.Sensor.Kind, "err", err)
	}

	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	publisher := service.NewMultiPublisher(log)
	rng := models.TargetRange{Min: cfg.Appliance.MinTarget, Max: cfg.Appliance.MaxTarget}
	services := service.NewService(repository.NewRepository(sqlDB), service.Deps{
		Range:      rng,
		Actuation:  sequencer.New(hw.actuator, nil),
		Sensor:     temp,
		Threshold:  cfg.Sensor.ReportThreshold,
		Publisher:  publisher,
		Metrics:    collector,
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
		Log:        log,
	})
	collector.SetSource(services.Monitoring)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Appliance.Init(ctx); err != nil {
		log.Fatalw("appliance_init_failed", "err", err)
	}
	shadow, _ := services.Appliance.State()
	log.Infow("appliance_ready", "target", shadow.Target, "power_on", shadow.PowerOn, "range", rng)

	ctrl := controller.New(services.Appliance, services.Temperature, hw.indicator, collector, cfg.Sensor.Interval, log)

	broker := services.Appliance.EffectiveBroker(models.BrokerSettings{
		Server:      cfg.MQTT.Broker,
		User:        cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
	mq := connectMQTT(ctx, cfg.MQTT, broker, ctrl, publisher, log)
	if mq != nil {
		defer mq.Disconnect()
	}

	if cfg.Influx.Enabled {
		sink, err := telemetry.NewInfluxSink(cfg.Influx, cfg.MQTT.ClientID, log)
		if err != nil {
			log.Errorw("influx_disabled", "err", err)
		} else {
			defer sink.Close()
			publisher.Attach(sink)
			log.Infow("influx_attached", "url", cfg.Influx.URL, "bucket", cfg.Influx.Bucket)
		}
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ctrl.Run(ctx)
	}()

	if hw.reset != nil {
		go hw.reset.Run(ctx, func() {
			cmd := models.Command{Kind: models.CommandResetConfig, Source: models.SourceButton}
			if err := ctrl.Submit(ctx, cmd); err != nil {
				log.Warnw("reset_button_rejected", "err", err)
			}
		})
	}

	apiHandler := handlers.NewHandler(services, ctrl, log).WithMetrics(collector, registry)
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	go func() {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("http_server_failed", "err", err)
		}
	}()

	waitForShutdown(cancel, srv, loopDone, log)
}

// openHardware selects real GPIO lines or the logging simulation.
func openHardware(cfg config.HardwareConfig, log *logger.Logger) (hardware, error) {
	if cfg.Driver == config.DriverSimulated {
		log.Infow("gpio_simulated")
		return hardware{
			actuator:  gpio.NewSimulatedActuator(log),
			indicator: gpio.NewSimulatedIndicator(log),
			close:     func() {},
		}, nil
	}

	if err := gpio.Open(); err != nil {
		return hardware{}, err
	}
	hw := hardware{
		actuator:  gpio.NewRPIOActuator(cfg.Pins, cfg.ActiveHigh, log),
		indicator: gpio.NopIndicator{},
		close: func() {
			if err := gpio.Close(); err != nil {
				log.Warnw("gpio_close_failed", "err", err)
			}
		},
	}
	if cfg.Pins.LED != 0 {
		hw.indicator = gpio.NewLEDIndicator(rpio.Pin(cfg.Pins.LED), cfg.LEDActive)
	}
	if cfg.Pins.Reset != 0 {
		hw.reset = gpio.NewResetButton(rpio.Pin(cfg.Pins.Reset), cfg.ResetPoll, log)
	}
	return hw, nil
}

// connectMQTT starts the broker session in the background. The publisher is
// attached at once and reports ErrOffline until the first connect succeeds;
// the controller and HTTP keep working meanwhile.
func connectMQTT(ctx context.Context, cfg config.MQTTConfig, broker models.BrokerSettings, ctrl *controller.Controller, pub *service.MultiPublisher, log *logger.Logger) *mqtt.Client {
	mcfg := mqtt.Config{
		Broker:         broker.Server,
		Port:           cfg.Port,
		Username:       broker.User,
		Password:       broker.Password,
		ClientID:       cfg.ClientID,
		TopicPrefix:    broker.TopicPrefix,
		ConnectRetries: cfg.ConnectRetries,
	}
	if mcfg.Broker == "" {
		log.Warnw("mqtt_disabled", "reason", "no broker configured")
		return nil
	}

	sink := func(cmd models.Command) {
		if err := ctrl.Submit(ctx, cmd); err != nil && !errors.Is(err, controller.ErrBusy) {
			log.Warnw("mqtt_command_dropped", "command", cmd.String(), "err", err)
		}
	}
	client := mqtt.NewClient(mcfg, sink, mqtt.NewHostDiagnostics(), log)
	pub.Attach(mqtt.NewPublisher(client.Paho(), mcfg.TopicPrefix))
	client.Start(ctx)
	return client
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("sqlite_close_failed", "err", err)
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM, then stops the control loop
// (after any command in progress) and the HTTP server.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, loopDone <-chan struct{}, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infow("shutdown_started", "signal", sig.String())

	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("http_shutdown_failed", "err", err)
	}

	// a running button sequence takes at most a few seconds plus the menu timeout
	select {
	case <-loopDone:
	case <-time.After(sequencer.MenuTimeout + shutdownTimeout):
		log.Warnw("control_loop_shutdown_timeout")
	}
	log.Infow("shutdown_complete")
}
