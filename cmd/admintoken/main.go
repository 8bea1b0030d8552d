// Command admintoken mints a front-desk JWT for the /admin API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	httpmiddleware "github.com/wolfman30/clinic-appointment-bot/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()
	subject := flag.String("sub", "front-desk", "token subject")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	token, err := httpmiddleware.IssueAdminToken(os.Getenv("ADMIN_JWT_SECRET"), *subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "admintoken: ADMIN_JWT_SECRET must be set:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
