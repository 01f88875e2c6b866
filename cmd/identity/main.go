// Command identity issues the identity token a participant presents to the
// membership API. It signs with the server's JWT secret, so only operators
// holding that secret can vouch for a participant id.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"meeting-gate/internal/config"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
	"meeting-gate/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	participantID := flag.String("participant", "", "Participant id to vouch for")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.InitializeWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	id := domain.ParticipantID(*participantID)
	if err := id.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid participant id: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.CredentialTTL())
	token, err := tokenManager.GenerateIdentity(id)
	if err != nil {
		logger.Error("Failed to issue identity token", "participantID", id, "error", err)
		os.Exit(1)
	}
	logger.Info("Issued identity token", "participantID", id, "expiresIn", cfg.CredentialTTL())
	fmt.Println(token)
}
