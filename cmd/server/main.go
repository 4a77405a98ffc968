package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/botarena/backend/compile"
	"github.com/botarena/backend/conf"
	"github.com/botarena/backend/http"
	"github.com/botarena/backend/match"
	"github.com/botarena/backend/pairing"
	"github.com/botarena/backend/pool"
	"github.com/botarena/backend/registry"
	"github.com/botarena/backend/s3bucket"
	"github.com/botarena/backend/sandbox"
)

const awsRegion = "eu-central-1"

var tableNames = registry.DdbTableNames{
	Contests:    "botarena_contests",
	Rounds:      "botarena_rounds",
	Maps:        "botarena_maps",
	Teams:       "botarena_teams",
	Assignments: "botarena_assignments",
	Codes:       "botarena_codes",
	Rooms:       "botarena_rooms",
	RoomTeams:   "botarena_room_teams",
	Ratings:     "botarena_ratings",
}

func main() {
	err := godotenv.Load()
	if err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	jwtKey := conf.GetJwtKeyFromEnv()
	baseDir := conf.GetBaseDirFromEnv()
	callbackBase := conf.GetCallbackBaseUrlFromEnv()

	images, err := conf.LoadImageMap(conf.GetImageMapPathFromEnv())
	if err != nil {
		slog.Error("load contest image map", "error", err)
		os.Exit(1)
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		slog.Error("load aws config", "error", err)
		os.Exit(1)
	}

	reg := registry.NewDdbRegistry(dynamodb.NewFromConfig(awsCfg), tableNames)

	bucket, err := s3bucket.NewS3Bucket(awsRegion, conf.GetS3BucketFromEnv())
	if err != nil {
		slog.Error("create s3 bucket client", "error", err)
		os.Exit(1)
	}

	runtime, err := sandbox.NewDockerRuntime()
	if err != nil {
		slog.Error("create docker runtime", "error", err)
		os.Exit(1)
	}

	queue := match.NewSqsQueue(sqs.NewFromConfig(awsCfg), conf.GetMatchSqsUrlFromEnv())
	ports := pool.NewPortPool(conf.GetPortBaseFromEnv(), conf.GetPortCountFromEnv())
	gate := pool.NewSlotGate(conf.GetSlotCapFromEnv(), runtime)

	compileSrvc := compile.NewService(reg, bucket, runtime, images, jwtKey,
		callbackBase+"/api/codes/compile/finish", baseDir,
		conf.GetCompileTimeoutFromEnv(), slog.Default())

	pairingSrvc := pairing.NewService(reg, queue, bucket, baseDir, slog.Default())

	resultSrvc := match.NewResultService(reg, ports, bucket, jwtKey, baseDir, slog.Default())

	scheduler := match.NewScheduler(match.SchedulerConfig{
		Registry:     reg,
		Queue:        queue,
		Ports:        ports,
		Gate:         gate,
		Runtime:      runtime,
		Images:       images,
		JwtKey:       jwtKey,
		FinishURL:    callbackBase + "/api/matches/finish",
		BaseDir:      baseDir,
		TickInterval: conf.GetTickIntervalFromEnv(),
		Logger:       slog.Default(),
	})
	go scheduler.Start(context.Background())

	httpServer := http.NewHttpServer(compileSrvc, pairingSrvc, resultSrvc, reg, jwtKey)

	address := ":8080"
	log.Printf("Starting server on %s", address)
	err = httpServer.Start(address)
	log.Printf("Server stopped with error: %v", err)
}
