package models

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type EnvConfig struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	VotesPerMinute int
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	AdminEmail     string
	Debug          bool
}

func ReadEnvConfig() EnvConfig {
	debug := os.Getenv("GRANTVOTES_DEBUG") == "true"
	port := os.Getenv("GRANTVOTES_PORT")
	if port == "" {
		port = "8000"
	}
	votesPerMinute, err := strconv.Atoi(os.Getenv("GRANTVOTES_VOTES_PER_MINUTE"))
	if err != nil {
		fmt.Println("Using default value for GRANTVOTES_VOTES_PER_MINUTE")
		votesPerMinute = 5
	}
	origins := strings.Split(os.Getenv("GRANTVOTES_ALLOWED_ORIGINS"), ",")
	if len(origins) == 1 && origins[0] == "" {
		origins = []string{"https://wheresmygrants.github.io", "http://localhost:3000"}
	}
	smtpPort, err := strconv.Atoi(os.Getenv("GRANTVOTES_SMTP_PORT"))
	if err != nil {
		smtpPort = 587
	}
	adminEmail := os.Getenv("GRANTVOTES_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "gzeevi25@gmail.com"
	}
	return EnvConfig{
		DatabaseURL:    os.Getenv("GRANTVOTES_DATABASE_URL"),
		Port:           port,
		AllowedOrigins: origins,
		VotesPerMinute: votesPerMinute,
		SMTPHost:       envOr("GRANTVOTES_SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       smtpPort,
		SMTPUser:       os.Getenv("GRANTVOTES_SMTP_USER"),
		SMTPPassword:   os.Getenv("GRANTVOTES_SMTP_PASSWORD"),
		AdminEmail:     adminEmail,
		Debug:          debug,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
