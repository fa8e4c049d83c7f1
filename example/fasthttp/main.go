// FILE: example/fasthttp/main.go
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/lixenwraith/logpp"
	"github.com/lixenwraith/logpp/compat"
	"github.com/valyala/fasthttp"
)

func main() {
	// Create and configure the registry
	reg, err := logpp.NewBuilder().
		LevelString("info").
		QueueCapacity(2048).
		RollingFile("/var/log/fasthttp/server.log", "10MB", "day").
		Build()
	if err != nil {
		panic(err)
	}
	defer reg.Shutdown()

	logger := reg.Logger("http")

	// Create fasthttp adapter with custom level detection
	fasthttpAdapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(logpp.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	// Configure fasthttp server
	server := &fasthttp.Server{
		Handler: requestHandler(logger),
		Logger:  fasthttpAdapter,

		// Other server settings
		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	// Start server
	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(logger *logpp.Logger) fasthttp.RequestHandler {
	access := logger.Named("access")
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		ctx.SetContentType("text/plain")
		fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
		access.Info("request served",
			logpp.String("method", string(ctx.Method())),
			logpp.String("path", string(ctx.Path())),
			logpp.Int("status", ctx.Response.StatusCode()),
			logpp.Duration("took", time.Since(start)),
		)
	}
}

func customLevelDetector(msg string) logpp.Level {
	// Custom logic to detect log levels
	// Can inspect specific fasthttp message patterns

	if strings.Contains(msg, "connection cannot be served") {
		return logpp.LevelWarn
	}
	if strings.Contains(msg, "error when serving connection") {
		return logpp.LevelError
	}

	// Use default detection
	return compat.DetectLogLevel(msg)
}
