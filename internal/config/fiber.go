package config

import (
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

// NewFiber returns the fiber app used by the HTTP host.
func NewFiber(cfg *Config) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "board-gauge",
			BodyLimit:         cfg.BodyLimitMB * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: cfg.LogLevel == "debug" || cfg.LogLevel == "trace",
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
		})

	return app
}
