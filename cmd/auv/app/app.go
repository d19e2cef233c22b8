package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/auv"
	"github.com/DaPhysikist/Nautilus/internal/motor"
	"github.com/DaPhysikist/Nautilus/internal/radio"
	"github.com/DaPhysikist/Nautilus/internal/sensor"
	"github.com/DaPhysikist/Nautilus/internal/storage"
)

const (
	storageDir         = "data"
	defaultMotorBaud   = 115200
	defaultSensorBaud  = 9600
	defaultRecordings  = "recordings"
	defaultMissionTick = 50 * time.Millisecond
	defaultMissionMax  = 10 * time.Minute
)

// Run wires the vehicle together from the configuration and operates the
// communication core until the context ends.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	cfg := auv.Config{
		Vehicle:           config.Vehicle.Name,
		PingInterval:      seconds(config.Radio.PingInterval, 3*time.Second),
		TelemetryInterval: seconds(config.Radio.TelemetryInterval, time.Second),
		ReceiveInterval:   seconds(config.Radio.ReceiveInterval, 100*time.Millisecond),
		ConnectionTimeout: seconds(config.Radio.ConnectionTimeout, 6*time.Second),
		MissionTick:       seconds(config.Mission.Tick, defaultMissionTick),
		MissionMaxTime:    seconds(config.Mission.MaxTime, defaultMissionMax),
		TurnSpeed:         config.Motors.TurnSpeed,
		ForwardSpeed:      config.Motors.ForwardSpeed,
		ManeuverPhase:     seconds(config.Motors.ManeuverPhase, 5*time.Second),
	}

	options := []func(*auv.Orchestrator){auv.WithLogger(logger)}

	if config.Storage.Enabled {
		store, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()
		options = append(options, auv.WithStore(store))
	}

	controller, closeController := createMotorController(&config.Motors, logger)
	defer closeController()

	options = append(options, auv.WithSensors(createSensors(&config.Sensors, logger)))

	if config.Hydrophone.Enabled && config.Hydrophone.DevicePath != "" {
		recorder, err := createHydrophone(&config.Hydrophone, logger)
		if err != nil {
			return fmt.Errorf("failed to create hydrophone recorder: %w", err)
		}
		options = append(options, auv.WithHydrophone(recorder))
	}

	newLink := func() auv.Link {
		return radio.New(radio.Config{
			Paths:       config.Radio.DevicePaths,
			BaudRate:    config.Radio.BaudRate,
			ReadTimeout: cfg.ReceiveInterval,
		}, radio.WithLogger(logger))
	}

	orchestrator := auv.NewOrchestrator(cfg, controller, newLink, options...)
	watchRestartSignal(ctx, orchestrator, logger)

	return orchestrator.Run(ctx)
}

// watchRestartSignal requests a core restart on SIGHUP, the operator's way to
// re-run device discovery without dropping the process.
func watchRestartSignal(ctx context.Context, o *auv.Orchestrator, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, restarting communication core")
				o.Restart()
			}
		}
	}()
}

func createMotorController(config *MotorConfig, logger *slog.Logger) (motor.Controller, func()) {
	if config.SerialPort == "" {
		logger.Warn("no motor serial port configured, running with logging-only driver")
		return motor.NewLogController(logger), func() {}
	}

	baudRate := config.BaudRate
	if baudRate == 0 {
		baudRate = defaultMotorBaud
	}

	controller, err := motor.OpenSerialController(config.SerialPort, baudRate)
	if err != nil {
		logger.Warn("motor controller is not connected, running with logging-only driver",
			slog.String("port", config.SerialPort), slog.String("error", err.Error()))
		return motor.NewLogController(logger), func() {}
	}

	logger.Info("motor controller has been found", slog.String("port", config.SerialPort))
	return controller, func() { _ = controller.Close() }
}

// createSensors opens the optional peripherals. An unavailable sensor leaves
// its slot nil and the vehicle still dives.
func createSensors(config *SensorConfig, logger *slog.Logger) (sensor.PressureSensor, sensor.IMU) {
	var pressure sensor.PressureSensor
	var imu sensor.IMU

	if config.Pressure.Enabled {
		baudRate := config.Pressure.BaudRate
		if baudRate == 0 {
			baudRate = defaultSensorBaud
		}
		if s, err := sensor.OpenPressure(logger, baudRate, config.Pressure.DevicePaths...); err != nil {
			logger.Warn("pressure sensor is not connected", slog.String("error", err.Error()))
		} else {
			pressure = s
		}
	}

	if config.IMU.Enabled {
		baudRate := config.IMU.BaudRate
		if baudRate == 0 {
			baudRate = defaultSensorBaud
		}
		if s, err := sensor.OpenIMU(logger, baudRate, config.IMU.DevicePaths...); err != nil {
			logger.Warn("imu is not connected", slog.String("error", err.Error()))
		} else {
			imu = s
		}
	}

	return pressure, imu
}

func createHydrophone(config *HydrophoneConfig, logger *slog.Logger) (*sensor.Recorder, error) {
	dir := config.RecordingDirectory
	if dir == "" {
		dir = defaultRecordings
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recording directory %s: %w", dir, err)
	}

	return sensor.NewRecorder(config.DevicePath, dir, sensor.WithRecorderLogger(logger)), nil
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("invalid storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("dive_%s.sqlite", time.Now().UTC().Format("20060102_150405")))

	var options []func(*storage.SqliteStore)
	if config.MaxBatchSize > 0 {
		options = append(options, storage.WithBatchSize(config.MaxBatchSize))
	}

	return storage.NewSqliteStore(dbPath, options...), nil
}
