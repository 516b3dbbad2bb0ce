package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/config"
	"github.com/garyjia/mission-orders/internal/infrastructure/external/lark"
)

// Sends one mission notification through the Lark messenger, outside the
// full service, to check app credentials and the recipient's open_id.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	openID := flag.String("open-id", "", "Lark open_id of the recipient (ou_...)")
	flag.Parse()

	fmt.Println("=== Lark Notification Test ===")

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Lark.AppID == "" || cfg.Lark.AppSecret == "" {
		log.Fatal("LARK_APP_ID and LARK_APP_SECRET must be set")
	}
	if !strings.HasPrefix(*openID, "ou_") {
		log.Fatal("Usage: test-notification -open-id ou_xxx")
	}

	fmt.Printf("App ID: %s\n", mask(cfg.Lark.AppID))

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	messenger := lark.NewMessenger(lark.NewSDKClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, logger), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = messenger.Notify(ctx, port.Recipient{UserID: "test", LarkOpenID: *openID},
		"Mission order awaiting approval",
		"OM-TEST-00000000 Field visit is waiting for your signature.")
	if err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}

	fmt.Println("Message sent")
}

func mask(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
