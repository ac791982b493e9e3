package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatterbox-app/server/internal/server"
)

func main() {
	fmt.Println("Starting Chatterbox backend...")

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(config.Port, mux)

	server.StartHub()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
		if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := server.GetHub().Shutdown(10 * time.Second); err != nil {
			log.Printf("Hub shutdown error: %v", err)
		}
	}
}
