package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pvaldez/pizza-express/config"
	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/router"
	"github.com/pvaldez/pizza-express/services"
	"github.com/pvaldez/pizza-express/storage"
	"github.com/pvaldez/pizza-express/utils"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	utils.InitLogger()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	autoMigrate(db)

	// Cart sessions, drafts and the offline cache live in Redis when
	// configured, otherwise in process memory.
	var kv storage.KV
	if rdb := config.InitRedis(); rdb != nil {
		// Session-scoped values expire rather than accumulating forever.
		kv = storage.NewRedisKV(rdb).WithTTL(7 * 24 * time.Hour)
		utils.InfoLogger.Printf("Using redis at %s for session storage", os.Getenv("REDIS_ADDR"))
	} else {
		kv = storage.NewMemoryKV()
		utils.InfoLogger.Println("REDIS_ADDR not set, using in-memory session storage")
	}

	monitor := services.NewChangeMonitor(db)
	monitor.Interval = 500 * time.Millisecond
	monitor.Start()
	defer monitor.Stop()

	stopSweeper := services.NewPaymentService(db).StartHoldSweeper(time.Hour)
	defer stopSweeper()

	r := router.SetupRouter(db, kv)
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Pizza{},
		&models.Order{},
		&models.OrderCancellation{},
		&models.DBChange{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	seedMenu(db)
}

// seedMenu inserts the signature menu on first boot so a fresh install
// has something to sell.
func seedMenu(db *gorm.DB) {
	var count int64
	if err := db.Model(&models.Pizza{}).Count(&count).Error; err != nil || count > 0 {
		return
	}
	pizzas := []models.Pizza{
		{Name: "Classic Cheese", Description: "Tomato sauce and a mozzarella blend", BasePrice: 11.99, Category: "signature", IsActive: true},
		{Name: "Pepperoni", Description: "Loaded with crispy pepperoni", BasePrice: 13.49, Category: "signature", IsActive: true},
		{Name: "Veggie Supreme", Description: "Peppers, onions, mushrooms, olives", BasePrice: 14.99, Category: "signature", IsActive: true},
		{Name: "Meat Lovers", Description: "Pepperoni, sausage, bacon, ham", BasePrice: 15.99, Category: "signature", IsActive: true},
	}
	if err := db.Create(&pizzas).Error; err != nil {
		utils.ErrorLogger.Printf("Error seeding menu: %v", err)
		return
	}
	utils.InfoLogger.Printf("Seeded %d menu items", len(pizzas))
}
