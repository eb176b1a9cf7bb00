// Команда admintoken печатает JWT администратора для вызова /api/v1/admin.
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/admintoken -email ops@example.com
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/lib/jwt"
)

func main() {
	email := flag.String("email", "", "admin e-mail written into the token")
	accountID := flag.String("id", "", "admin account id (random uuid if empty)")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}
	if *accountID == "" {
		*accountID = uuid.NewString()
	}

	cfg := config.MustLoad()
	if cfg.JWTSecretKey == "" {
		log.Fatal("jwttoken.jwt_secret_key is not set")
	}

	token, err := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL).GenerateToken(*accountID, *email, true)
	if err != nil {
		log.Fatalf("cannot sign token: %s", err)
	}
	fmt.Println(token)
}
