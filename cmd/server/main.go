package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/handlers"
	"shiftline-backend/pkg/payments"
)

func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	db := database.GetDatabase(database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		DataDir:     cfg.DataDir,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})
	defer db.Close()

	gateway := payments.NewStripeGateway(cfg, db)
	router := handlers.NewRouter(cfg, db, gateway)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("shiftline-backend listening on :%s (%s)\n", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
