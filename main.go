package main

import (
	"log"
	"net/http"
)

// jwtSecret is set from config at startup; tests override it directly.
var jwtSecret []byte

func main() {
	cfg := loadConfig()
	jwtSecret = []byte(cfg.JWTSecret)

	db := initDB(cfg.DatabaseURL)
	defer db.Close()

	store := NewPgAttributeStore(db)
	ledger := NewPgInterestLedger(db)
	loader := NewProfileLoader(store)

	var bridge ChannelBridge
	if cfg.SlackBotToken != "" {
		bridge = NewSlackBridge(cfg.SlackBotToken)
	} else {
		log.Println("Warning: SLACK_BOT_TOKEN not set, chat channel endpoints disabled")
	}

	mux := http.NewServeMux()

	// Accounts
	mux.Handle("/register", registerHandler(db, bridge))
	mux.Handle("/login", loginHandler(db))

	// Profile attributes
	mux.Handle("/me/profile", meProfileHandler(store))

	// Matching
	mux.Handle("/matching/result", matchingResultHandler(store, loader))

	// Likes & matches
	mux.Handle("/likes", likesHandler(ledger))
	mux.Handle("/likes/received", likesReceivedHandler(ledger))
	mux.Handle("/likes/", recordLikeHandler(store, ledger)) // POST /likes/{id}
	mux.Handle("/matches", matchesHandler(ledger))
	mux.Handle("/matches/", matchesActionsRouter(store, ledger, bridge)) // GET /matches/{id}/channel

	// Cluster groups
	mux.Handle("/clustering/refresh", clusteringRefreshHandler(store))
	mux.Handle("/clusters/channel", clusterChannelHandler(store, bridge))

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	log.Println("Starting matching backend on port " + cfg.Port + "...")
	if err := http.ListenAndServe(":"+cfg.Port, withCORS(mux)); err != nil {
		log.Fatal(err)
	}
}
