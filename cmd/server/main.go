package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/datahub/internal/server"
	"github.com/dmitrijs2005/datahub/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("datahub: %v", err)
	}

	app.Run(ctx)

}
