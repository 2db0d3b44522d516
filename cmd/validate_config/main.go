package main

import (
	"fmt"
	"os"

	"genset-bridge/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Device: %s:%d\n", cfg.Device.Host, cfg.Device.Port)
	fmt.Printf("   Timeouts: dial %v, read %v, write %v\n",
		cfg.Device.DialTimeout(), cfg.Device.ReadTimeout(), cfg.Device.WriteTimeout())
	fmt.Printf("   Poll interval: %v\n", cfg.Poll.Interval())
	fmt.Printf("   Backoff: %v to %v\n", cfg.Poll.BackoffFloor(), cfg.Poll.BackoffCeiling())
	fmt.Printf("   Offline grace period: %v\n", cfg.Poll.GracePeriod())
	fmt.Printf("   Command timeout: %v\n", cfg.Poll.CommandTimeout())

	if cfg.MQTT.Enabled {
		fmt.Printf("   MQTT: %s:%d (state: %s, availability: %s)\n",
			cfg.MQTT.Broker, cfg.MQTT.Port, cfg.MQTT.StateTopic, cfg.MQTT.AvailabilityTopic)
	} else {
		fmt.Printf("   MQTT: disabled\n")
	}
	if cfg.HTTP.Enabled {
		fmt.Printf("   HTTP panel: %s\n", cfg.HTTP.Listen)
	} else {
		fmt.Printf("   HTTP panel: disabled\n")
	}
	if cfg.Journal.Enabled {
		fmt.Printf("   Event journal: %s\n", cfg.Journal.Path)
	} else {
		fmt.Printf("   Event journal: disabled\n")
	}
	fmt.Printf("   Logging level: %s\n", cfg.Logging.Level)

	fmt.Println("\n✅ Configuration is valid!")
}
