package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-requisition/internal/config"
	"github.com/garyjia/purchase-requisition/internal/container"
	"github.com/garyjia/purchase-requisition/internal/domain/entity"
	httpapi "github.com/garyjia/purchase-requisition/internal/interfaces/http"
)

// Bootstrap helper: optionally registers a user in the local database and
// prints a bearer token for it.
//
//	go run ./cmd/issue-token -user u-1 -create -email a@b.c -roles REQUESTER
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	userID := flag.String("user", "", "user id to issue the token for")
	create := flag.Bool("create", false, "create the user before issuing the token")
	email := flag.String("email", "", "email of the created user")
	roles := flag.String("roles", "REQUESTER", "comma separated roles of the created user")
	limit := flag.String("limit", "", "approval limit of the created user")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.token_ttl")
	flag.Parse()

	if err := run(*configPath, *userID, *create, *email, *roles, *limit, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, userID string, create bool, email, roles, limit string, ttl time.Duration) error {
	if userID == "" {
		return fmt.Errorf("-user is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	c, err := container.NewContainer(container.FromAppConfig(cfg), zap.NewNop())
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Close()

	users := c.Repositories().User
	if create {
		u, err := newUser(userID, email, roles, limit)
		if err != nil {
			return err
		}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
	}

	u, err := users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("user %q does not exist, pass -create", userID)
	}

	token, err := httpapi.IssueToken(httpapi.AuthConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.Issuer,
	}, u.ID, ttl, time.Now())
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func newUser(id, email, roles, limit string) (*entity.User, error) {
	u := &entity.User{ID: id, Email: email, Active: true}
	for _, raw := range strings.Split(roles, ",") {
		role := entity.Role(strings.ToUpper(strings.TrimSpace(raw)))
		if role == "" {
			continue
		}
		if !role.IsValid() {
			return nil, fmt.Errorf("unknown role %q", raw)
		}
		u.Roles = append(u.Roles, role)
	}
	if limit != "" {
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q: %w", limit, err)
		}
		u.ApprovalLimit = &d
	}
	return u, nil
}
