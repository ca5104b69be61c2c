package main

import (
	"fmt"
	"os"

	"lademeter/internal/config"
	"lademeter/internal/excel"
	"lademeter/internal/form"
	"lademeter/internal/freight"
	"lademeter/internal/geo"
	"lademeter/internal/logger"
	"lademeter/internal/session"
)

const defaultConfigPath = "configs/config.toml"

func main() {
	configPath := defaultConfigPath
	if len(os.Args) > 2 {
		printUsage()
		os.Exit(2)
	}
	if len(os.Args) == 2 {
		if os.Args[1] == "-h" || os.Args[1] == "--help" {
			printUsage()
			return
		}
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error("Form terminated", "error", err)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	carryOver, err := excel.NewCarryOver(cfg.CarryOver.Template)
	if err != nil {
		return fmt.Errorf("invalid carry-over template: %w", err)
	}

	resolver := geo.NewNominatimResolver(geo.Options{
		Endpoint:           cfg.Geocoder.Endpoint,
		UserAgent:          cfg.Geocoder.UserAgent,
		AcceptLanguage:     cfg.Geocoder.AcceptLanguage,
		Timeout:            cfg.Geocoder.Timeout(),
		InsecureSkipVerify: cfg.Geocoder.InsecureSkipVerify,
	})
	engine := freight.NewEngine(geo.NewEstimator(resolver))

	logger.Info("Starting form",
		"document", cfg.Document.Path,
		"sheet", cfg.Document.Sheet,
		"geocoder", cfg.Geocoder.Endpoint)

	return form.Run(form.Options{
		Engine:    engine,
		Session:   session.New(),
		CarryOver: carryOver,
		OpenDocument: func(path string) form.Injector {
			return excel.NewInjector(path, cfg.Document.Sheet)
		},
		DocumentPath: cfg.Document.Path,
		SiteAnchor:   cfg.Document.SiteAnchor,
		AccentColor:  cfg.UI.AccentColor,
	})
}

func printUsage() {
	fmt.Println("Lademeter - freight quote and invoice form")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  lademeter [config-path]   (default %s)\n", defaultConfigPath)
}
