package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/logger"
	"github.com/stemsi/exstem-taker/internal/service"
	"golang.org/x/term"
)

// issue-token mints a student JWT for the development backend.
func main() {
	studentFlag := flag.Int("student", 0, "Student ID (prompted when omitted)")
	askSecret := flag.Bool("ask-secret", false, "Prompt for the signing secret instead of using JWT_SECRET")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.SetupTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	interactive := term.IsTerminal(int(syscall.Stdin))

	studentID := *studentFlag
	if studentID == 0 {
		if interactive {
			fmt.Fprint(os.Stderr, "Enter Student ID: ")
		}
		raw, _ := reader.ReadString('\n')
		p, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || p <= 0 {
			fmt.Fprintln(os.Stderr, "Error: Student ID must be a positive number")
			os.Exit(1)
		}
		studentID = p
	}

	if *askSecret {
		if !interactive {
			fmt.Fprintln(os.Stderr, "Error: -ask-secret needs a terminal")
			os.Exit(1)
		}
		fmt.Fprint(os.Stderr, "Enter JWT Secret: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr) // Newline after secret input
		if err != nil || len(secret) == 0 {
			fmt.Fprintln(os.Stderr, "Error reading secret")
			os.Exit(1)
		}
		cfg.JWTSecret = string(secret)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	token, err := service.NewAuthService(cfg).GenerateStudentToken(studentID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Info().
		Int("student_id", studentID).
		Dur("expires_in", cfg.JWTExpiry).
		Msg("Student token issued")
	fmt.Println(token)
}
