package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paperbase-ai/paperbase/internal/config"
	"github.com/paperbase-ai/paperbase/internal/repository"
	"github.com/paperbase-ai/paperbase/internal/service"
)

func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Create and deactivate user accounts",
	}

	cmd.AddCommand(UserCreateCmd())
	cmd.AddCommand(UserDeactivateCmd())

	return cmd
}

func UserCreateCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create <username> <password>",
		Short: "Create a new user",
		Long:  "Create a new user account with the specified username and password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runUserCreate(args[0], args[1], email, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")

	return cmd
}

func runUserCreate(username, password, email, outputFormat string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	authSvc := service.NewAuthService(userRepo, sessionRepo, &service.DefaultUUIDGenerator{}, cfg.SessionTTL())

	user, err := authSvc.Register(ctx, service.RegisterInput{
		Username: username,
		Password: password,
		Email:    email,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         user.ID,
			"username":   user.Username,
			"created_at": user.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("User created: %s (id: %d)\n", user.Username, user.ID)
	}

	return nil
}

func UserDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a user",
		Long:  "Deactivate a user account; existing sessions stop validating",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserDeactivate,
	}
}

func runUserDeactivate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id: %s", args[0])
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	if err := userRepo.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	fmt.Printf("User %d deactivated\n", id)
	return nil
}
