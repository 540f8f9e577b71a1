// Command create-admin provisions an ADMIN account. Admin accounts are never
// created through the registration endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Arpan7125/procto-3.0/internal/config"
	"github.com/Arpan7125/procto-3.0/internal/database"
	"github.com/Arpan7125/procto-3.0/internal/logger"
	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/repository"
)

func main() {
	var email, firstName, lastName string
	flag.StringVar(&email, "email", "", "Admin email (required)")
	flag.StringVar(&firstName, "first-name", "Admin", "First name")
	flag.StringVar(&lastName, "last-name", "User", "Last name")
	flag.Parse()

	if email == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Load()
	zlog := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, zlog)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	if len(password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	if string(password) != string(confirm) {
		log.Fatal("passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword(password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	users := repository.NewUserRepository(pool)
	taken, err := users.EmailExists(ctx, email)
	if err != nil {
		log.Fatalf("check email: %v", err)
	}
	if taken {
		log.Fatalf("an account with email %s already exists", email)
	}

	admin := &model.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         model.RoleAdmin,
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin: %v", err)
	}

	fmt.Printf("Admin account created: %s (%s)\n", admin.Email, admin.ID)
}
