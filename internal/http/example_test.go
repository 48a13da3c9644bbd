package http_test

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	httpserver "github.com/fyrsmithlabs/claimd/internal/http"
	"github.com/fyrsmithlabs/claimd/internal/logging"
)

// ExampleServer demonstrates how to create and start the HTTP server.
func ExampleServer() {
	logger := logging.NewNop()
	svc := evaluation.NewService(nil, evaluation.WithLogger(logger))

	server, err := httpserver.NewServer(svc, logger, &httpserver.Config{
		Host:      "127.0.0.1",
		Port:      0,
		BodyLimit: "2M",
		RateLimit: httpserver.RateLimitConfig{Enabled: true, RPS: 20, Burst: 40},
	})
	if err != nil {
		panic(err)
	}

	go func() {
		_ = server.Start()
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		panic(err)
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
