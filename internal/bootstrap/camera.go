package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/presence-coach/internal/camera"
	"github.com/eleven-am/presence-coach/internal/coach"
	"github.com/eleven-am/presence-coach/internal/realtime"
	"go.uber.org/fx"
)

func ProvideRTCConfig(cfg *Config) realtime.Config {
	iceServers := make([]realtime.ICEServerConfig, 0, len(cfg.RTCICEServers))
	for _, s := range cfg.RTCICEServers {
		iceServers = append(iceServers, realtime.ICEServerConfig{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	return realtime.Config{
		ICEServers: iceServers,
		PortRange: realtime.PortRange{
			Min: cfg.RTCPortMin,
			Max: cfg.RTCPortMax,
		},
	}
}

func ProvideRTCManager(lc fx.Lifecycle, cfg realtime.Config, logger *slog.Logger) (*realtime.Manager, error) {
	mgr, err := realtime.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			mgr.Close()
			return nil
		},
	})
	return mgr, nil
}

func ProvideCameraConstraints(cfg *Config) camera.Constraints {
	return camera.Constraints{
		Width:      cfg.CameraWidth,
		Height:     cfg.CameraHeight,
		FacingMode: camera.FacingUser,
	}
}

// ProvideCameraSource picks the browser camera published over WebRTC, or a
// camera attached to this host when CAMERA_SOURCE=local.
func ProvideCameraSource(cfg *Config, rtc *realtime.Manager, logger *slog.Logger) camera.Source {
	if cfg.CameraSource == CameraSourceLocal {
		logger.Info("using host camera")
		return camera.NewLocalSource(logger)
	}
	logger.Info("using browser camera over webrtc", "open_timeout", cfg.CameraOpenTimeout)
	return camera.NewRemoteSource(rtc, cfg.CameraOpenTimeout, logger)
}

func ProvideRTCHandler(mgr *realtime.Manager, sessions *coach.Manager, logger *slog.Logger) *realtime.Handler {
	return realtime.NewHandler(mgr, sessions, logger.With("handler", "camera"))
}

var CameraModule = fx.Options(
	fx.Provide(
		ProvideRTCConfig,
		ProvideRTCManager,
		ProvideCameraConstraints,
		ProvideCameraSource,
		ProvideRTCHandler,
	),
)
