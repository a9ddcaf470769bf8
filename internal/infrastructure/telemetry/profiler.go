package telemetry

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig holds Pyroscope configuration.
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string

	ProfileCPU        bool
	ProfileAllocSpace bool
	ProfileInuseSpace bool
	ProfileGoroutines bool
	ProfileMutex      bool
	ProfileBlock      bool

	MutexProfileFraction int // default 5
	BlockProfileRate     int // default 5
}

// Profiler wraps the Pyroscope client.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	config   ProfilerConfig
	mu       sync.Mutex
	stopped  bool
}

// NewProfiler starts continuous profiling, or returns a no-op profiler when disabled.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if cfg.ServerAddress == "" {
		return nil, errors.New("profiler server address is required when profiling is enabled")
	}
	if cfg.ApplicationName == "" {
		return nil, errors.New("profiler application name is required when profiling is enabled")
	}

	if cfg.ProfileMutex {
		runtime.SetMutexProfileFraction(positiveOr(cfg.MutexProfileFraction, 5))
	}
	if cfg.ProfileBlock {
		runtime.SetBlockProfileRate(positiveOr(cfg.BlockProfileRate, 5))
	}

	tags := map[string]string{}
	if hostname, err := os.Hostname(); err == nil {
		tags["hostname"] = hostname
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            pyroscopeLogger{logger.Named("pyroscope").Sugar()},
		Tags:              tags,
		ProfileTypes:      cfg.profileTypes(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.profiler = profiler

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
	)
	return p, nil
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (cfg ProfilerConfig) profileTypes() []pyroscope.ProfileType {
	var types []pyroscope.ProfileType
	if cfg.ProfileCPU {
		types = append(types, pyroscope.ProfileCPU)
	}
	if cfg.ProfileAllocSpace {
		types = append(types, pyroscope.ProfileAllocObjects, pyroscope.ProfileAllocSpace)
	}
	if cfg.ProfileInuseSpace {
		types = append(types, pyroscope.ProfileInuseObjects, pyroscope.ProfileInuseSpace)
	}
	if cfg.ProfileGoroutines {
		types = append(types, pyroscope.ProfileGoroutines)
	}
	if cfg.ProfileMutex {
		types = append(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
	}
	if cfg.ProfileBlock {
		types = append(types, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration)
	}
	return types
}

// Stop flushes pending profiles. Safe to call more than once.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.profiler == nil {
		p.stopped = true
		return nil
	}
	p.stopped = true
	if err := p.profiler.Stop(); err != nil {
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	return nil
}

func (p *Profiler) IsEnabled() bool {
	return p.config.Enabled && p.profiler != nil
}

type pyroscopeLogger struct {
	s *zap.SugaredLogger
}

func (l pyroscopeLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
