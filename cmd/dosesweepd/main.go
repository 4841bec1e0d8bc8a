// dosesweepd exposes the dose window sweep over HTTP so that an external
// cron or task queue can trigger it periodically.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dosier-app/dosier/internal/dsn"
	"github.com/dosier-app/dosier/scheduler"
	"github.com/dosier-app/dosier/storage/gormstore"
)

func main() {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("SERVICE_HOST", "0.0.0.0")
	viper.SetDefault("SERVICE_PORT", "8080")

	db, err := gorm.Open(postgres.Open(dsn.FromEnv()), &gorm.Config{})
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}

	store := gormstore.New(db)
	if err := store.Migrate(); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	sched := scheduler.New(store)

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.POST("/sweep", func(c *gin.Context) {
		results, err := sched.Sweep(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("sweep run failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		log.WithField("reminders", len(results)).Info("sweep run finished")
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"results": results,
		})
	})

	addr := viper.GetString("SERVICE_HOST") + ":" + viper.GetString("SERVICE_PORT")
	log.WithField("addr", addr).Info("dosesweepd listening")
	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
