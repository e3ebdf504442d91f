// Command issue-token signs a candidate or proctor access token with the
// configured JWT secret, for local testing and operator use.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/stemsi/exstem-interview/internal/config"
	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/service"
)

func main() {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "subject", "", "Candidate reference or proctor id")
	flag.StringVar(&role, "role", string(service.RoleCandidate), "candidate or proctor")
	flag.DurationVar(&ttl, "ttl", 4*time.Hour, "Token lifetime")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "issue-token")

	// Prompt for anything missing when run interactively.
	if subject == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Enter subject: ")
		line, _ := reader.ReadString('\n')
		subject = strings.TrimSpace(line)
	}

	token, err := service.NewTokenService(cfg.JWTSecret).Issue(subject, service.Role(role), ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Info().Str("subject", subject).Str("role", role).Dur("ttl", ttl).Msg("Token issued")
	fmt.Println(token)
}
