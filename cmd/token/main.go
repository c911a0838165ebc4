// Command token mints a player token for local development, signed with the
// same JWT_SECRET the server verifies against.
package main

import (
	"flag"
	"fmt"
	"os"

	"sco-server/internal/auth"
	"sco-server/internal/shared/config"
)

func main() {
	player := flag.String("player", "", "player id to put in the token")
	admin := flag.Bool("admin", false, "grant the admin role")
	flag.Parse()

	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	role := ""
	if *admin {
		role = auth.RoleAdmin
	}

	token, err := auth.GenerateJWT(config.GlobalConfig.Auth.JWTSecret, *player, role, config.GlobalConfig.Auth.TokenExpiration)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
