// cmd/server/main.go
package main

import (
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/bidblitz/bidblitz/internal/auction"
	"github.com/bidblitz/bidblitz/internal/auth"
	"github.com/bidblitz/bidblitz/internal/catalog"
	"github.com/bidblitz/bidblitz/internal/config"
	"github.com/bidblitz/bidblitz/internal/handlers"
	"github.com/bidblitz/bidblitz/internal/middleware"
	"github.com/bidblitz/bidblitz/internal/session"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	items, err := catalog.LoadFile(cfg.AuctionList)
	if err != nil {
		logger.Fatalf("failed to load auction list: %v", err)
	}
	logger.Infof("loaded %d items from %s", len(items), cfg.AuctionList)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer)
	reg := session.NewRegistry(issuer, logger, func() *auction.Auction {
		return auction.New(items, cfg.CategoryOrder, cfg.CountdownSecs)
	})

	logged := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello world"))
	})
	mux.Handle("/create-room", logged(handlers.CreateRoomHandler(reg, issuer)))
	mux.Handle("/join-room/", logged(handlers.JoinRoomHandler(reg, issuer)))
	mux.Handle("/ws", logged(handlers.RoomWSHandler(logger, reg, issuer)))

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
