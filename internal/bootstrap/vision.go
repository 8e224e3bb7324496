package bootstrap

import (
	"github.com/eleven-am/presence-coach/internal/vision"
	"go.uber.org/fx"
)

func ProvideInferenceClient(cfg *Config) *vision.Client {
	return vision.NewClient(vision.Config{
		BaseURL: cfg.InferenceURL,
		Timeout: cfg.InferenceTimeout,
	})
}

func ProvideEncoder(cfg *Config) *vision.Encoder {
	return vision.NewEncoder(cfg.JPEGQuality)
}

var VisionModule = fx.Options(
	fx.Provide(
		ProvideInferenceClient,
		ProvideEncoder,
	),
)
