package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/yungbote/hermes-backend/internal/app"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/services"
)

func main() {
	var (
		collection string
		jobType    string
		amount     int
		strategy   string
		class      string
		dryRun     bool
	)
	flag.StringVar(&collection, "collection", "", "collection id")
	flag.StringVar(&jobType, "job", types.JobTypeGenerate, "generate | count_trait | shake_token_id | export_metadata")
	flag.IntVar(&amount, "amount", 0, "artworks to generate (generate only)")
	flag.StringVar(&strategy, "strategy", types.StrategyNormalRandom, "normal-random | random-after")
	flag.StringVar(&class, "class", types.DefaultComponentClass, "component class A-J")
	flag.BoolVar(&dryRun, "dry-run", false, "print the request without submitting")
	flag.Parse()

	_ = godotenv.Load()

	collectionID, err := uuid.Parse(strings.TrimSpace(collection))
	if err != nil || collectionID == uuid.Nil {
		fmt.Println("a valid -collection id is required")
		os.Exit(2)
	}
	req := services.SubmitRequest{
		CollectionID:   collectionID,
		JobType:        jobType,
		Amount:         amount,
		Strategy:       strategy,
		ComponentClass: class,
	}
	if dryRun {
		fmt.Printf("[dry-run] submit %s collection=%s amount=%d strategy=%s class=%s\n",
			req.JobType, req.CollectionID, req.Amount, req.Strategy, req.ComponentClass)
		return
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	coll, err := application.Repos.Collections.GetByID(dbctx.Context{Ctx: ctx}, collectionID)
	if err != nil {
		fmt.Printf("load collection: %v\n", err)
		os.Exit(1)
	}
	if coll == nil {
		fmt.Printf("collection %s not found\n", collectionID)
		os.Exit(1)
	}
	req.OwnerUserID = coll.OwnerUserID

	run, err := application.Services.Generation.Submit(ctx, req)
	if err != nil {
		fmt.Printf("submit failed: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(run, "", "  ")
	fmt.Println(string(out))
}
